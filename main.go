package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shdlab/department-api/config"
	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/routes"
	"github.com/shdlab/department-api/services"
	"github.com/shdlab/department-api/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.RefreshToken{},
		&models.Category{},
		&models.Post{},
		&models.Hashtag{},
		&models.File{},
		&models.BulletinMessage{},
	)

	tokens := services.NewTokenService(db, time.Duration(cfg.RefreshTokenTTLDays)*24*time.Hour)
	posts := services.NewPostService(db)
	files := services.NewFileService(db, cfg.UploadDir)

	tokens.StartSweeper(time.Hour)

	r := routes.SetupRouter(db, tokens, posts, files)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		utils.Sugar.Infof("starting server on port %s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Sugar.Fatalf("server stopped with error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Sugar.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Sugar.Errorf("forced shutdown: %v", err)
	}
	utils.Sugar.Info("server exited")
}
