package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"azure-devops-mcp-server/internal/application"
	"azure-devops-mcp-server/internal/domain"
	"azure-devops-mcp-server/internal/infrastructure"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file (optional; environment variables take precedence)")
	flag.Parse()

	// Stdout carries the MCP protocol stream - all logging goes to stderr
	log.SetOutput(os.Stderr)

	// Load configuration from the optional file plus environment
	log.Printf("Loading configuration from: %s", *configPath)
	config, err := domain.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Configuration loaded successfully")

	// Create the authenticated HTTP client (PAT auth, TLS policy, retries)
	creds := &domain.Credentials{PAT: config.PAT}
	httpClient, err := domain.NewAuthenticatedClient(creds, config.TLS)
	if err != nil {
		log.Fatalf("Failed to create authenticated client: %v", err)
	}
	log.Println("Authenticated HTTP client initialized")

	// Create the Azure DevOps client for the configured project
	baseURL := infrastructure.OrganizationBaseURL(config.Organization)
	client := infrastructure.NewAzureDevOpsClient(baseURL, config.Project, httpClient)
	log.Printf("Azure DevOps client initialized for %s/%s", config.Organization, config.Project)

	// Register the work item handlers
	storyHandler := application.NewUserStoryHandler(client)
	testCaseHandler := application.NewTestCaseHandler(client)

	// Create request router with all handlers
	router := application.NewRequestRouter(storyHandler, testCaseHandler)
	log.Println("Request router initialized with user story and test case handlers")

	// Stdio transport: newline-delimited JSON-RPC over stdin/stdout
	transport := domain.NewStdioTransport()

	// Create server with all dependencies
	server := application.NewServer(transport, router, config)
	log.Println("MCP server created")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Println("Starting MCP server...")
		if err := server.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	log.Println("MCP server started successfully (stdio transport)")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()
	case err := <-errChan:
		log.Printf("Server error: %v", err)
		cancel()
		if err := server.Close(); err != nil {
			log.Printf("Error closing server: %v", err)
		}
		os.Exit(1)
	}

	// Close the server
	log.Println("Closing server...")
	if err := server.Close(); err != nil {
		log.Printf("Error during server shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server shutdown complete")
}
