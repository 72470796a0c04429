package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sodiqdevpython/quizcore-backend/internal/config"
	"github.com/sodiqdevpython/quizcore-backend/internal/database"
	"github.com/sodiqdevpython/quizcore-backend/internal/logger"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
	"github.com/sodiqdevpython/quizcore-backend/internal/repository"
	"github.com/sodiqdevpython/quizcore-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	themeRepo := repository.NewThemeRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	authService := service.NewAuthService(cfg, userRepo)
	subjectService := service.NewSubjectService(subjectRepo, log)
	themeService := service.NewThemeService(themeRepo, log)

	fmt.Println("=== Seeding demo data ===")

	// ─── Users ─────────────────────────────────────────────────────────
	usernames := []struct {
		username, first, last string
		role                  model.Role
	}{
		{"student1", "Aziz", "Karimov", model.RoleStudent},
		{"student2", "Malika", "Yusupova", model.RoleStudent},
		{"teacher1", "Dilshod", "Rahimov", model.RoleTeacher},
	}

	for _, u := range usernames {
		hash, err := authService.HashPassword("demo1234")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		user := &model.User{
			Username:     u.username,
			PasswordHash: hash,
			FirstName:    u.first,
			LastName:     u.last,
			Role:         u.role,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			fmt.Printf("Skipping user %s: %v\n", u.username, err)
			continue
		}
		fmt.Printf("Created user %s (%s)\n", user.Username, user.Role)
	}

	// ─── Subject, theme, test ──────────────────────────────────────────
	subject := &model.Subject{Name: "Matematika", Description: "Maktab matematikasi"}
	if err := subjectService.Create(ctx, subject); err != nil {
		log.Fatal().Err(err).Msg("Failed to create subject")
	}
	fmt.Printf("Created subject %s\n", subject.Name)

	theme := &model.Theme{SubjectID: subject.ID, Name: "Kvadrat tenglamalar", Duration: 20}
	if err := themeService.Create(ctx, theme); err != nil {
		log.Fatal().Err(err).Msg("Failed to create theme")
	}
	fmt.Printf("Created theme %s\n", theme.Name)

	test, err := testRepo.GetOrCreateForTheme(ctx, theme)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create test")
	}
	fmt.Printf("Created test %s\n", test.Name)

	// ─── Questions ─────────────────────────────────────────────────────
	count := 0
	for i := 1; i <= 30; i++ {
		q := &model.Question{
			TestID: test.ID,
			Text:   fmt.Sprintf("Savol %d: x^2 - %d = 0 tenglamaning musbat ildizi nechaga teng?", i, i*i),
		}
		for j := 0; j < 4; j++ {
			q.Options = append(q.Options, model.Option{
				Text:      fmt.Sprintf("%d", i+j),
				IsCorrect: j == 0,
			})
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			fmt.Printf("Error creating question %d: %v\n", i, err)
			continue
		}
		count++
	}

	fmt.Printf("\nSeed completed! Added %d/30 questions.\n", count)
}
