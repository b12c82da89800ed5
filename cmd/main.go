package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"librarium/internal/config"
	"librarium/internal/handlers"
	"librarium/internal/models"
	"librarium/internal/repositories"
	"librarium/internal/services"
)

func main() {
	root := &cobra.Command{
		Use:   "librarium",
		Short: "Library catalogue backend",
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			db := openDB(cfg)

			userRepo := repositories.NewUserRepository(db)
			categoryRepo := repositories.NewCategoryRepository(db)
			bookRepo := repositories.NewBookRepository(db)
			borrowRepo := repositories.NewBorrowRepository(db)

			authService := services.NewAuthService(db, userRepo, cfg.JWTSecret, cfg.TokenTTL)
			catalogService := services.NewCatalogService(db, categoryRepo, bookRepo, borrowRepo, cfg.LockTimeout)
			borrowService := services.NewBorrowService(db, bookRepo, borrowRepo, cfg.LockTimeout)

			router := gin.Default()
			handlers.RegisterRoutes(router, authService, catalogService, borrowService)

			srv := &http.Server{
				Addr:         cfg.ServerAddr,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
			}

			log.Printf("Starting server on %s", cfg.ServerAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server error: %v", err)
			}
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			db := openDB(cfg)

			if err := models.Migrate(db); err != nil {
				log.Fatalf("migration failed: %v", err)
			}
			log.Println("migration complete")
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo categories and books",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			db := openDB(cfg)

			if err := seed(db); err != nil {
				log.Fatalf("seeding failed: %v", err)
			}
			log.Println("seeding complete")
		},
	}
}

func seed(db *gorm.DB) error {
	categories := []models.Category{
		{Name: "Fiction", Description: "Fictional stories and novels"},
		{Name: "Non-Fiction", Description: "Real-world subjects and factual content"},
		{Name: "Science", Description: "Scientific books and research"},
		{Name: "Technology", Description: "Technology and programming books"},
		{Name: "History", Description: "Historical books and biographies"},
		{Name: "Self-Help", Description: "Personal development and motivation"},
	}

	byName := make(map[string]models.Category, len(categories))
	for i := range categories {
		if err := db.Create(&categories[i]).Error; err != nil {
			return err
		}
		byName[categories[i].Name] = categories[i]
	}

	books := []struct {
		category string
		book     models.Book
	}{
		{"Fiction", models.Book{
			Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565",
			Publisher: ptr("Scribner"), PublicationYear: ptr(1925), Stock: 5,
			Description: ptr("A classic American novel set in the Jazz Age"),
		}},
		{"Technology", models.Book{
			Title: "Clean Code", Author: "Robert C. Martin", ISBN: "9780132350884",
			Publisher: ptr("Prentice Hall"), PublicationYear: ptr(2008), Stock: 10,
			Description: ptr("A handbook of agile software craftsmanship"),
		}},
		{"Science", models.Book{
			Title: "A Brief History of Time", Author: "Stephen Hawking", ISBN: "9780553380163",
			Publisher: ptr("Bantam"), PublicationYear: ptr(1988), Stock: 3,
			Description: ptr("From the Big Bang to black holes"),
		}},
		{"Self-Help", models.Book{
			Title: "Atomic Habits", Author: "James Clear", ISBN: "9780735211292",
			Publisher: ptr("Avery"), PublicationYear: ptr(2018), Stock: 8,
			Description: ptr("An easy & proven way to build good habits"),
		}},
	}

	for _, entry := range books {
		category, ok := byName[entry.category]
		if !ok {
			continue
		}
		entry.book.CategoryID = category.ID
		if err := db.Create(&entry.book).Error; err != nil {
			return err
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
