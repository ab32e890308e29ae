// Package seed loads a sample catalog into an empty library.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/catalog"
	"github.com/Byiringiro215/lms/internal/entities"
)

// Catalog creates books on behalf of a librarian.
type Catalog interface {
	Create(ctx context.Context, requester entities.Identity, in catalog.CreateInput) (*entities.Book, error)
}

// SystemIdentity is the actor recorded for seeded data.
var SystemIdentity = entities.Identity{UserID: "system", Role: entities.RoleAdmin}

// Result counts what a seeding run did.
type Result struct {
	Created []*entities.Book
	Skipped int
}

// SampleBooks is a small catalog covering every category.
func SampleBooks() []catalog.CreateInput {
	return []catalog.CreateInput{
		{
			Title:         "Pride and Prejudice",
			Author:        "Jane Austen",
			ISBN:          "9780141439518",
			Category:      string(entities.CategoryNovel),
			Description:   "Elizabeth Bennet and Mr. Darcy trade first impressions in Regency England.",
			PublishedYear: 1813,
			TotalCopies:   4,
		},
		{
			Title:         "Moby-Dick",
			Author:        "Herman Melville",
			ISBN:          "9780142437247",
			Category:      string(entities.CategoryNovel),
			Description:   "Captain Ahab hunts the white whale.",
			PublishedYear: 1851,
			TotalCopies:   2,
		},
		{
			Title:         "Relativity: The Special and the General Theory",
			Author:        "Albert Einstein",
			ISBN:          "9780517884416",
			Category:      string(entities.CategoryPhysics),
			Description:   "Einstein's own introduction to relativity for the general reader.",
			PublishedYear: 1916,
			TotalCopies:   3,
		},
		{
			Title:         "Six Easy Pieces",
			Author:        "Richard P. Feynman",
			ISBN:          "9780465025275",
			Category:      string(entities.CategoryPhysics),
			Description:   "The most accessible chapters of the Feynman Lectures on Physics.",
			PublishedYear: 1994,
			TotalCopies:   2,
		},
		{
			Title:         "Elements",
			Author:        "Euclid",
			ISBN:          "9781888009194",
			Category:      string(entities.CategoryMathematics),
			Description:   "Thirteen books of geometry and number theory.",
			PublishedYear: 300,
			TotalCopies:   1,
		},
		{
			Title:         "How to Solve It",
			Author:        "George Pólya",
			ISBN:          "9780691164076",
			Category:      string(entities.CategoryMathematics),
			Description:   "Heuristics for mathematical problem solving.",
			PublishedYear: 1945,
			TotalCopies:   3,
		},
		{
			Title:         "The C Programming Language",
			Author:        "Brian W. Kernighan, Dennis M. Ritchie",
			ISBN:          "9780131103627",
			Category:      string(entities.CategoryProgramming),
			Description:   "The reference introduction to C.",
			PublishedYear: 1978,
			TotalCopies:   2,
		},
		{
			Title:         "The Go Programming Language",
			Author:        "Alan A. A. Donovan, Brian W. Kernighan",
			ISBN:          "9780134190440",
			Category:      string(entities.CategoryProgramming),
			Description:   "A thorough tour of Go and its standard library.",
			PublishedYear: 2015,
			TotalCopies:   5,
		},
	}
}

// Books creates each book that is not already in the catalog. Books whose
// ISBN exists are skipped, so repeated runs are harmless.
func Books(ctx context.Context, c Catalog, books []catalog.CreateInput, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var res Result
	for _, in := range books {
		book, err := c.Create(ctx, SystemIdentity, in)
		switch {
		case apperr.IsKind(err, apperr.KindConflict):
			res.Skipped++
			log.Debug("Book already seeded", zap.String("isbn", in.ISBN))
		case err != nil:
			return res, fmt.Errorf("seed %q: %w", in.Title, err)
		default:
			res.Created = append(res.Created, book)
			log.Info("Seeded book", zap.String("title", book.Title), zap.String("code", book.Code))
		}
	}
	return res, nil
}
