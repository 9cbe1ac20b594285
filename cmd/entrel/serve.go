package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	entrelhttp "github.com/fwojciec/entrel/http"
	"github.com/gin-gonic/gin"
)

// Run executes the serve command. It blocks until interrupted.
func (c *ServeCmd) Run(deps *Dependencies) error {
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(deps.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, deps, c.Addr)
}

func serve(ctx context.Context, deps *Dependencies, addr string) error {
	server := entrelhttp.NewServer(deps.Analyzer, deps.Analyses, deps.Logger)
	fmt.Fprintf(deps.Stdout, "Serving on %s\n", addr)
	return server.ListenAndServe(ctx, addr)
}
