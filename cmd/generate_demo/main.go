// Command generate_demo creates a demo database with a sample catalog, a few
// users and loans in every state.
// Usage: go run ./cmd/generate_demo [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/entrypoint"
	"github.com/Byiringiro215/lms/internal/ledger"
	"github.com/Byiringiro215/lms/internal/seed"
)

const defaultDemoDatabasePath = "./demo/demo.db"

var demoUsers = []entities.ExternalIdentity{
	{ExternalID: "demo-student-1", Email: "amara.student@example.com", Name: "Amara Student", Role: entities.RoleStudent},
	{ExternalID: "demo-student-2", Email: "kofi.student@example.com", Name: "Kofi Student", Role: entities.RoleStudent},
	{ExternalID: "demo-teacher-1", Email: "ines.teacher@example.com", Name: "Ines Teacher", Role: entities.RoleTeacher},
	{ExternalID: "demo-librarian-1", Email: "librarian@example.com", Name: "Lena Librarian", Role: entities.RoleLibrarian},
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(*dbPath + suffix); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to remove existing demo database: %v", err)
		}
	}

	cfg := &config.Config{
		Database: config.Database{Driver: config.DatabaseDriverSQLite, Path: *dbPath},
		Ledger:   config.Ledger{StudentBorrowLimit: 3, TxTimeout: 5 * time.Second},
		Sweep:    config.Sweep{Schedule: config.DefaultSweepSchedule},
		Auth:     config.Auth{JWTSecret: "demo-only-secret"},
	}

	app, err := entrypoint.NewApp(cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer app.Close()

	ctx := context.Background()

	res, err := seed.Books(ctx, app.Catalog, seed.SampleBooks(), nil)
	if err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	log.Printf("Seeded %d books", len(res.Created))

	users := make([]*entities.User, 0, len(demoUsers))
	for _, ext := range demoUsers {
		user, err := app.Users.Upsert(ctx, ext)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", ext.Email, err)
		}
		users = append(users, user)
		log.Printf("Created %s (%s)", user.Email, user.Role)
	}

	createLoans(ctx, app, users, res.Created)

	log.Println("Demo database generated successfully!")
}

// createLoans leaves one returned, two active and one overdue loan.
func createLoans(ctx context.Context, app *entrypoint.App, users []*entities.User, books []*entities.Book) {
	if len(books) < 4 || len(users) < 3 {
		log.Printf("Not enough seeded data for demo loans")
		return
	}
	now := time.Now().UTC()

	borrow := func(user *entities.User, book *entities.Book, due time.Time) *entities.Borrowing {
		b, err := app.Ledger.Borrow(ctx, entities.Identity{UserID: user.ID, Role: user.Role}, ledger.BorrowRequest{
			UserID:  user.ID,
			BookID:  book.ID,
			DueDate: due,
		})
		if err != nil {
			log.Fatalf("Failed to lend %q to %s: %v", book.Title, user.Email, err)
		}
		log.Printf("Lent %q to %s, due %s", book.Title, user.Email, due.Format("2006-01-02"))
		return b
	}

	// Loans made three weeks ago: one came back, one is now past due.
	app.Ledger.SetClock(func() time.Time { return now.AddDate(0, 0, -21) })
	returned := borrow(users[0], books[0], now.AddDate(0, 0, -7))
	borrow(users[1], books[1], now.AddDate(0, 0, -3))
	if _, err := app.Ledger.Return(ctx, returned.ID, entities.Identity{UserID: users[0].ID, Role: users[0].Role}); err != nil {
		log.Fatalf("Failed to return demo loan: %v", err)
	}
	app.Ledger.SetClock(time.Now)

	borrow(users[0], books[2], now.AddDate(0, 0, 14))
	borrow(users[2], books[3], now.AddDate(0, 0, 30))

	marked, err := app.Sweeper.RunNow(ledger.TriggerCLI)
	if err != nil {
		log.Fatalf("Failed to run overdue sweep: %v", err)
	}
	log.Printf("Marked %d loans overdue", marked)
}
