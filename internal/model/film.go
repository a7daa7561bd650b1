package model

import "sort"

// Film represents a single film record in the remote catalog.
// JSON field names follow the catalog service's wire format.
type Film struct {
	ID          int64  `json:"id"`
	Title       string `json:"nama_film"`
	Cast        string `json:"pemeran"`
	Description string `json:"deskripsi,omitempty"`
	ImageURL    string `json:"gambar"`
	OwnerID     *int64 `json:"userId"`
}

// EditableBy reports whether the user may modify or delete the film.
// Unowned films (nil OwnerID) are visible to everyone but editable by no one.
func (f Film) EditableBy(userID int64) bool {
	return f.OwnerID != nil && *f.OwnerID == userID
}

// SortFilmsByID orders films ascending by ID, in place. Display order is
// deterministic regardless of the order the service returns.
func SortFilmsByID(films []Film) {
	sort.SliceStable(films, func(i, j int) bool { return films[i].ID < films[j].ID })
}
