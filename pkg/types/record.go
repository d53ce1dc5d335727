package types

// Record is implemented by every entity stored in a collection.
// RecordID returns the integer identity assigned at creation.
type Record interface {
	RecordID() int
}

// Book is an entry in the books collection.
type Book struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// RecordID implements Record.
func (b Book) RecordID() int { return b.ID }

// Task is an entry in the tasks collection. Limit is a free-form deadline
// label and is stored as entered.
type Task struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Limit string `json:"limit"`
}

// RecordID implements Record.
func (t Task) RecordID() int { return t.ID }

// Item is an entry in the items collection. Price is stored as entered,
// without numeric parsing.
type Item struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// RecordID implements Record.
func (i Item) RecordID() int { return i.ID }
