package types

// Resource names. Each resource is an independent collection with its own
// route group and its own store entry.
const (
	BooksResource = "books"
	TasksResource = "tasks"
	ItemsResource = "items"
)

// StandardResourceNames lists all resources in display order.
var StandardResourceNames = []string{
	BooksResource,
	TasksResource,
	ItemsResource,
}

// IsResource reports whether name is one of the standard resources.
func IsResource(name string) bool {
	for _, r := range StandardResourceNames {
		if r == name {
			return true
		}
	}
	return false
}
