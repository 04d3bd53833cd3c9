package user

import "math"

// DefaultPerPage is the index page size when none is configured.
const DefaultPerPage = 30

// Page is one bounded, ordered slice of the user listing.
type Page struct {
	Users      []User // Users on this page, in listing order
	Number     int    // Number is the current page number (1-based)
	Size       int    // Size is the maximum number of users per page
	TotalCount int64  // TotalCount is the length of the full listing
	TotalPages int    // TotalPages is the number of non-empty pages
}

// HasNext reports whether a page follows this one.
func (p Page) HasNext() bool {
	return p.Number < p.TotalPages
}

// HasPrev reports whether a non-empty page precedes this one.
func (p Page) HasPrev() bool {
	return p.Number > 1 && p.TotalPages > 0
}

// Offset returns the listing index of the first user on page number for the given size.
// When the page would end beyond math.MaxInt the offset saturates at math.MaxInt,
// which lies past any listing.
func Offset(number, size int) int {
	number, size = normalize(number, size)
	if number-1 > (math.MaxInt-size)/size {
		return math.MaxInt
	}
	return (number - 1) * size
}

// NewPage creates a Page from users already cut to the requested window,
// calculating the total pages from the full count.
func NewPage(users []User, number, size int, total int64) Page {
	number, size = normalize(number, size)

	totalPages := 0
	if total > 0 {
		totalPages = int((total-1)/int64(size) + 1)
	}
	if users == nil {
		users = []User{}
	}

	return Page{
		Users:      users,
		Number:     number,
		Size:       size,
		TotalCount: total,
		TotalPages: totalPages,
	}
}

// Paginate cuts page number out of a complete ordered listing.
// A page past the end is empty rather than an error.
func Paginate(listing []User, number, size int) Page {
	number, size = normalize(number, size)

	start := Offset(number, size)
	if start < 0 || start >= len(listing) {
		return NewPage(nil, number, size, int64(len(listing)))
	}
	end := min(start+size, len(listing))

	window := make([]User, end-start)
	copy(window, listing[start:end])
	return NewPage(window, number, size, int64(len(listing)))
}

func normalize(number, size int) (int, int) {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPerPage
	}
	return number, size
}
