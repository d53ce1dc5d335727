package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/mesh-intelligence/cabinet/internal/repository"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

// titles are the display names of each resource.
var titles = map[string]string{
	types.BooksResource: "Books",
	types.TasksResource: "Tasks",
	types.ItemsResource: "Items",
}

// resource is the route group of one collection.
type resource[T types.Record] struct {
	name string
	repo *repository.Repository[T]

	// fromForm reads the non-id fields of a submitted add form and returns
	// the constructor the repository calls with the assigned id.
	fromForm func(form url.Values) func(id int) T
}

type listPage[T types.Record] struct {
	Title    string
	Resource string
	Records  []T
}

type detailPage[T types.Record] struct {
	Title    string
	Resource string
	Record   T
	Found    bool
}

// mount registers the list, detail, add and delete routes of rs.
func mount[T types.Record](s *Server, mux *http.ServeMux, rs *resource[T]) {
	base := "/" + rs.name
	title := titles[rs.name]

	s.handle(mux, "GET "+base, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.views.render(w, rs.name+"_list", listPage[T]{
			Title:    title,
			Resource: rs.name,
			Records:  rs.repo.List(),
		})
	}))

	s.handle(mux, "GET "+base+"/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := detailPage[T]{Title: title, Resource: rs.name}
		if id, ok := pathID(r); ok {
			page.Record, page.Found = rs.repo.Find(id)
		}
		s.views.render(w, rs.name+"_detail", page)
	}))

	s.handle(mux, "POST "+base+"/add", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.logger.Printf("%s: parsing add form: %v", rs.name, err)
		}
		rs.repo.Add(r.Context(), rs.fromForm(r.PostForm))
		http.Redirect(w, r, base, http.StatusFound)
	}))

	s.handle(mux, "GET "+base+"/delete/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := pathID(r); ok {
			rs.repo.Delete(r.Context(), id)
		}
		http.Redirect(w, r, base, http.StatusFound)
	}))
}

// pathID parses the {id} wildcard. A non-numeric id matches no record.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func bookFromForm(form url.Values) func(int) types.Book {
	title, author := form.Get("title"), form.Get("author")
	return func(id int) types.Book {
		return types.Book{ID: id, Title: title, Author: author}
	}
}

func taskFromForm(form url.Values) func(int) types.Task {
	title, limit := form.Get("title"), form.Get("limit")
	return func(id int) types.Task {
		return types.Task{ID: id, Title: title, Limit: limit}
	}
}

func itemFromForm(form url.Values) func(int) types.Item {
	name, price := form.Get("name"), form.Get("price")
	return func(id int) types.Item {
		return types.Item{ID: id, Name: name, Price: price}
	}
}
