package domain

import "time"

type User struct {
	ID        UserID    `json:"id" gorm:"primaryKey;type:uuid"`
	Email     string    `json:"email" gorm:"uniqueIndex"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// FavoriteMovie is a user's saved catalog entry for an external movie.
type FavoriteMovie struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     UserID    `json:"userId" gorm:"index;type:uuid"`
	ExternalID string    `json:"externalId"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	ThumbURL   string    `json:"thumbUrl"`
	PosterURL  string    `json:"posterUrl"`
	OriginName string    `json:"originName"`
	Quality    string    `json:"quality"`
	Year       int       `json:"year"`
	Country    string    `json:"country"`
	Category   string    `json:"category"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Comment is a user's review of a movie, at most one per (user, movie).
type Comment struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         UserID    `json:"userId" gorm:"index;type:uuid"`
	MovieSlug      string    `json:"movieSlug" gorm:"index"`
	MovieName      string    `json:"movieName"`
	MovieThumbnail string    `json:"movieThumbnail"`
	Content        string    `json:"content"`
	Rating         float64   `json:"rating"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
