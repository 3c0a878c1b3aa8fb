// Command hubspot-extract runs extraction jobs defined in a YAML file and
// writes the materialized tables to output files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Sternrassler/hubspot-extract-client/pkg/client"
	"github.com/Sternrassler/hubspot-extract-client/pkg/extract"
	"github.com/Sternrassler/hubspot-extract-client/pkg/filters"
	"github.com/Sternrassler/hubspot-extract-client/pkg/logging"
	"github.com/Sternrassler/hubspot-extract-client/pkg/table"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// OutputSpec names the target file for one job.
type OutputSpec struct {
	// Name of the output file without extension. Defaults to the endpoint.
	Name string `yaml:"name"`

	// Extension selects the sink format: csv or columnar. Defaults to csv.
	Extension string `yaml:"extension"`
}

// JobSpec configures one extraction job.
type JobSpec struct {
	Endpoint   string         `yaml:"endpoint"`
	Properties []string       `yaml:"properties"`
	Filters    filters.Groups `yaml:"filters"`

	// NRows caps the extracted rows. Absent means drain all pages.
	NRows *int `yaml:"nrows"`

	Output OutputSpec `yaml:"output"`
}

// JobFile is the top-level YAML document.
type JobFile struct {
	Jobs []JobSpec `yaml:"jobs"`
}

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	jobPath := "jobs.yaml"
	if len(os.Args) > 1 {
		jobPath = os.Args[1]
	}

	jobFile, err := loadJobFile(jobPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", jobPath).Msg("Failed to load job file")
	}

	token := os.Getenv("HUBSPOT_TOKEN")
	if token == "" {
		logger.Fatal().Msg("HUBSPOT_TOKEN is required")
	}

	// Setup Redis for shared rate limit state
	redisClient := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_URL", "localhost:6379"),
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	userAgent := getEnv("USER_AGENT", "hubspot-extract-client/0.1.0")
	hubspot, err := client.New(client.DefaultConfig(redisClient, client.StaticToken(token), userAgent))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create HubSpot client")
	}
	defer hubspot.Close()

	extractor, err := extract.New(hubspot, extract.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create extractor")
	}

	sink := table.NewSink(getEnv("OUTPUT_DIR", "."))

	for _, job := range jobFile.Jobs {
		logger.Info().
			Str("endpoint", job.Endpoint).
			Msg("Running extraction job")

		tbl, err := extractor.ExtractTable(ctx, extract.Request{
			Endpoint:   job.Endpoint,
			Properties: job.Properties,
			Filters:    job.Filters,
			RowLimit:   job.NRows,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("endpoint", job.Endpoint).Msg("Extraction failed")
		}

		name, extension := outputTarget(job)
		if err := sink.Write(tbl, name, extension); err != nil {
			logger.Fatal().Err(err).Str("endpoint", job.Endpoint).Msg("Failed to write output")
		}
	}

	logger.Info().Int("jobs", len(jobFile.Jobs)).Msg("All jobs complete")
}

// loadJobFile reads and validates a YAML job file.
func loadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	var jobFile JobFile
	if err := yaml.Unmarshal(data, &jobFile); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}

	if len(jobFile.Jobs) == 0 {
		return nil, fmt.Errorf("job file defines no jobs")
	}
	for i, job := range jobFile.Jobs {
		if job.Endpoint == "" {
			return nil, fmt.Errorf("job %d: endpoint is required", i)
		}
	}

	return &jobFile, nil
}

// outputTarget resolves the output file name and extension for a job,
// defaulting to <endpoint>.csv.
func outputTarget(job JobSpec) (string, string) {
	name := job.Output.Name
	if name == "" {
		name = job.Endpoint
	}
	extension := job.Output.Extension
	if extension == "" {
		extension = table.ExtCSV
	}
	return name, extension
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
