package view

import (
	"fmt"
	"net/url"
	"strconv"
)

// Flash types.
const (
	FlashSuccess = "success"
	FlashNotice  = "notice"
	FlashError   = "error"
)

// Flash is a one-off message shown above the page content.
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Link is a navigation control. Method is set for links that do not GET.
type Link struct {
	Label   string `json:"label"`
	Href    string `json:"href"`
	Method  string `json:"method,omitempty"`
	Current bool   `json:"current,omitempty"`
}

// Page is the part of every response a renderer needs to draw the frame of a page.
type Page struct {
	Title   string `json:"title"`
	Heading string `json:"heading,omitempty"`
	Flash   *Flash `json:"flash,omitempty"`
	Nav     []Link `json:"nav"`
}

// WithFlash returns p carrying a flash message.
func (p Page) WithFlash(kind, message string) Page {
	p.Flash = &Flash{Type: kind, Message: message}
	return p
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Page
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Errors  []string            `json:"errors,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Renderer builds page frames for one application title.
type Renderer struct {
	AppTitle string
}

// FullTitle is "<app title> | <page>", or the bare app title for an empty page.
func (r Renderer) FullTitle(page string) string {
	if page == "" {
		return r.AppTitle
	}
	return r.AppTitle + " | " + page
}

// Page builds a frame with navigation for the signed-in user, if any.
func (r Renderer) Page(title, heading string, currentUserID int64) Page {
	return Page{
		Title:   r.FullTitle(title),
		Heading: heading,
		Nav:     Nav(currentUserID),
	}
}

// Paths used in links.
const (
	PathRoot    = "/"
	PathUsers   = "/users"
	PathSignup  = "/signup"
	PathSignin  = "/signin"
	PathSignout = "/signout"
	GravatarURL = "http://gravatar.com/emails"
)

// UserPath is the profile path of a user.
func UserPath(id int64) string {
	return PathUsers + "/" + strconv.FormatInt(id, 10)
}

// EditUserPath is the settings path of a user.
func EditUserPath(id int64) string {
	return UserPath(id) + "/edit"
}

// Nav returns the header links; currentUserID <= 0 means signed out.
func Nav(currentUserID int64) []Link {
	if currentUserID <= 0 {
		return []Link{
			{Label: "Home", Href: PathRoot},
			{Label: "Sign up", Href: PathSignup},
			{Label: "Sign in", Href: PathSignin},
		}
	}
	return []Link{
		{Label: "Home", Href: PathRoot},
		{Label: "Users", Href: PathUsers},
		{Label: "Profile", Href: UserPath(currentUserID)},
		{Label: "Settings", Href: EditUserPath(currentUserID)},
		{Label: "Sign out", Href: PathSignout, Method: "DELETE"},
	}
}

// IndexPageURL is the href of index page n, keeping the order and search parameters.
func IndexPageURL(n int, order, query string) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(n))
	if order != "" {
		v.Set("order", order)
	}
	if query != "" {
		v.Set("q", query)
	}
	return fmt.Sprintf("%s?%s", PathUsers, v.Encode())
}
