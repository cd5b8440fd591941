/*
Package domain contains the core models of the techtrends report pipeline.

It defines the record threaded through every stage of a workflow run, the closed
sets of recognized inputs, and the error taxonomy shared by the engine and its
collaborators. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - WorkflowState: the snapshot of one run (inputs, artifacts, status, error).
  - Params: the validated setup arguments a run is constructed from.
  - AnalysisPlan: the structured outcome of the planning stage.
  - SearchResult / Passage: the evidence gathered by the research stage.
  - LifecycleHooks: callbacks for observability around stage execution.
*/
package domain
