package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Type is anything a field or an argument can be declared as.
type Type interface {
	ref() string
	object() *Object
}

type scalar string

func (s scalar) ref() string     { return string(s) }
func (s scalar) object() *Object { return nil }

const (
	ID     = scalar("ID")
	String = scalar("String")
	Int    = scalar("Int")
)

type list struct{ of Type }

func (l list) ref() string     { return "[" + l.of.ref() + "]" }
func (l list) object() *Object { return l.of.object() }

func ListOf(t Type) Type { return list{t} }

type nonNull struct{ of Type }

func (n nonNull) ref() string     { return n.of.ref() + "!" }
func (n nonNull) object() *Object { return n.of.object() }

func NonNull(t Type) Type { return nonNull{t} }

type Arg struct {
	Name string
	Type Type
}

type Field struct {
	Name string
	Type Type
	Args []Arg
}

// Object is a handle to an object type. It can be referenced by fields as soon as it is
// declared; its own fields are set later with Define.
type Object struct {
	name    string
	fields  []Field
	defined bool
}

func (o *Object) ref() string     { return o.name }
func (o *Object) object() *Object { return o }

func (o *Object) Name() string { return o.name }

// Define sets the object's fields, replacing any set before.
func (o *Object) Define(fields ...Field) *Object {
	o.fields = fields
	o.defined = true
	return o
}

// Graph holds the declared object types in declaration order.
type Graph struct {
	objects  []*Object
	byName   map[string]*Object
	query    *Object
	mutation *Object
}

func NewGraph() *Graph {
	return &Graph{byName: map[string]*Object{}}
}

// Declare returns the handle for name, creating it on first use.
func (g *Graph) Declare(name string) *Object {
	if o, ok := g.byName[name]; ok {
		return o
	}
	o := &Object{name: name}
	g.objects = append(g.objects, o)
	g.byName[name] = o
	return o
}

func (g *Graph) Query(o *Object)    { g.query = o }
func (g *Graph) Mutation(o *Object) { g.mutation = o }

func (g *Graph) check() error {
	var errs []error
	if g.query == nil {
		errs = append(errs, errors.New("no query type"))
	}

	member := func(o *Object) bool { return o != nil && g.byName[o.name] == o }
	for _, root := range []*Object{g.query, g.mutation} {
		if root != nil && !member(root) {
			errs = append(errs, fmt.Errorf("root type %s is not declared in this graph", root.name))
		}
	}

	for _, o := range g.objects {
		if !o.defined || len(o.fields) == 0 {
			errs = append(errs, fmt.Errorf("type %s has no fields", o.name))
		}
		for _, f := range o.fields {
			if target := f.Type.object(); target != nil && !member(target) {
				errs = append(errs, fmt.Errorf("%s.%s references undeclared type %s", o.name, f.Name, target.name))
			}
			for _, a := range f.Args {
				if a.Type.object() != nil {
					errs = append(errs, fmt.Errorf("%s.%s(%s) takes an object type", o.name, f.Name, a.Name))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// SDL renders the graph in the GraphQL schema definition language.
func (g *Graph) SDL() (string, error) {
	if err := g.check(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("schema {\n")
	fmt.Fprintf(&b, "\tquery: %s\n", g.query.name)
	if g.mutation != nil {
		fmt.Fprintf(&b, "\tmutation: %s\n", g.mutation.name)
	}
	b.WriteString("}\n")

	for _, o := range g.objects {
		fmt.Fprintf(&b, "\ntype %s {\n", o.name)
		for _, f := range o.fields {
			fmt.Fprintf(&b, "\t%s%s: %s\n", f.Name, renderArgs(f.Args), f.Type.ref())
		}
		b.WriteString("}\n")
	}
	return b.String(), nil
}

func renderArgs(args []Arg) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name + ": " + a.Type.ref()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Library builds the book/author graph. Book and Author are declared before either is
// defined so that Book.author and Author.books can point at each other.
func Library() *Graph {
	g := NewGraph()

	book := g.Declare("Book")
	author := g.Declare("Author")

	book.Define(
		Field{Name: "id", Type: ID},
		Field{Name: "name", Type: String},
		Field{Name: "genre", Type: String},
		Field{Name: "author", Type: author},
	)
	author.Define(
		Field{Name: "id", Type: ID},
		Field{Name: "name", Type: String},
		Field{Name: "age", Type: Int},
		Field{Name: "books", Type: ListOf(book)},
	)

	query := g.Declare("RootQueryType").Define(
		Field{Name: "book", Type: book, Args: []Arg{{"id", ID}}},
		Field{Name: "author", Type: author, Args: []Arg{{"id", ID}}},
		Field{Name: "books", Type: ListOf(book)},
		Field{Name: "authors", Type: ListOf(author)},
	)
	mutation := g.Declare("Mutation").Define(
		Field{Name: "addAuthor", Type: author, Args: []Arg{{"name", String}, {"age", Int}}},
		Field{Name: "addBook", Type: book, Args: []Arg{{"name", String}, {"genre", String}, {"authorId", ID}}},
	)

	g.Query(query)
	g.Mutation(mutation)
	return g
}
