package entity

type Course struct {
	ID uint64

	Title       string
	PriceMinor  int64
	Currency    string
	IsPublished bool
}
