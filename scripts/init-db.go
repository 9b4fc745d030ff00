package main

import (
	"fmt"
	"log"

	"encargate/internal/config"
	"encargate/internal/database"
	"encargate/internal/models"
	"encargate/internal/repository"
	"encargate/internal/services"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Seed categories
	fmt.Println("Seeding categories...")
	categories := []models.Category{
		{Name: "Limpieza", Icon: "broom"},
		{Name: "Plomería", Icon: "wrench"},
		{Name: "Electricidad", Icon: "bolt"},
		{Name: "Jardinería", Icon: "leaf"},
		{Name: "Mudanzas", Icon: "truck"},
	}
	for _, category := range categories {
		if err := db.Where("name = ?", category.Name).FirstOrCreate(&category).Error; err != nil {
			log.Printf("Warning: failed to seed category %s: %v", category.Name, err)
		}
	}

	// Create default admin user
	fmt.Println("Creating default admin user...")
	userRepo := repository.NewUserRepository(db)
	userService := services.NewUserService(userRepo)

	if existing, err := userService.GetUserByEmail("admin@encargate.co"); err == nil && existing != nil {
		fmt.Println("Admin user already exists")
	} else {
		admin := &models.User{
			Name:     "Administrador",
			Email:    "admin@encargate.co",
			Role:     string(models.RoleAdmin),
			Verified: true,
		}
		if err := userService.CreateUser(admin, "changeme123"); err != nil {
			log.Fatal("Failed to create admin user:", err)
		}
		fmt.Println("Admin user created (email admin@encargate.co)")
	}

	// Seed demo encargados
	fmt.Println("Seeding demo encargados...")
	encargados := []models.Encargado{
		{
			Name:        "Carlos Pérez",
			Email:       "carlos@encargate.co",
			Service:     "Plomería",
			Description: "Plomero con 10 años de experiencia",
			CategoryID:  2,
			Price:       80000,
			Available:   true,
			Verified:    true,
		},
		{
			Name:        "María González",
			Email:       "maria@encargate.co",
			Service:     "Limpieza",
			Description: "Limpieza de hogares y oficinas",
			CategoryID:  1,
			Price:       60000,
			Available:   true,
			Verified:    true,
		},
	}
	for _, encargado := range encargados {
		if err := db.Where("email = ?", encargado.Email).FirstOrCreate(&encargado).Error; err != nil {
			log.Printf("Warning: failed to seed encargado %s: %v", encargado.Email, err)
		}
	}

	fmt.Println("Database initialization complete")
}
