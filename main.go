package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"reporter/src/api"
	"reporter/src/config"
)

func main() {
	// A local .env is optional; deployments export the variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./settings")
	if err != nil {
		log.Println(err, "Error while loading config")
		return
	}
	errC, err := run(cfg)
	if err != nil {
		log.Println(err, "Couldn't run")
		return
	}

	if err := <-errC; err != nil {
		log.Println(err, "Error while running")
	}
}

func run(cfg *config.Config) (<-chan error, error) {
	errC := make(chan error, 1)

	server, err := api.NewServer(cfg)
	if err != nil {
		return nil, err
	}
	httpServer := api.NewHTTPServer(server)

	go func() {
		log.Println("Starting server on port", server.Port)

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned error is
		// ErrServerClosed."
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalln("An error raised while setting up server", err)
			errC <- err
		}
	}()
	return errC, nil
}
