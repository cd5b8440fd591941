/*
Package techtrends generates technology trend reports through a fixed, checkpointed pipeline.

A run moves through four stages (plan, research, report, convert) that share one workflow state. After every stage a single router inspects the state: an empty error continues to the next stage, anything else diverts to the error handler and terminates the run.

# Concept

The stages own the transformations, while the host supplies the collaborators: a text generator, a web searcher, an optional document retriever, a converter and an optional publisher. This Hexagonal Architecture allows the same pipeline to run from the CLI, an HTTP server or an MCP client.

# Key Features

  - Copy-on-write state: stages receive a snapshot and return an updated copy.
  - Uniform routing: the same decision is applied after every stage.
  - Checkpoints: with a store configured, every stage is persisted and interrupted runs can be resumed.
  - Deterministic fallbacks: search degrades to a fixed placeholder set when no credential is configured.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"
		"os"

		"github.com/aretw0/techtrends"
		"github.com/aretw0/techtrends/pkg/adapters/convert"
		"github.com/aretw0/techtrends/pkg/adapters/openai"
		"github.com/aretw0/techtrends/pkg/adapters/search"
		"github.com/aretw0/techtrends/pkg/domain"
	)

	func main() {
		gen, err := openai.New(os.Getenv(openai.APIKeyEnv))
		if err != nil {
			log.Fatal(err)
		}

		wf := techtrends.New(techtrends.Collaborators{
			Generator: gen,
			Searcher:  search.New(os.Getenv(search.APIKeyEnv)),
			Converter: convert.New("output"),
		})

		err = wf.Setup(techtrends.Params{
			Fields:   []domain.Tag{domain.TagAI, domain.TagEnergy},
			Format:   domain.FormatMarkdown,
			Language: domain.LanguageEnglish,
			Depth:    domain.DepthStandard,
		})
		if err != nil {
			log.Fatal(err)
		}

		path, err := wf.Run(context.Background(), func(msg string) { fmt.Println(msg) })
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("report written to", path)
	}
*/
package techtrends
