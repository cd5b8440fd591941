/*
Package ports defines the driven ports (interfaces) of the techtrends workflow.

These interfaces decouple the engine and its stages from external implementations,
allowing the pipeline to work with any text-generation service, search backend,
retrieval index, file converter or checkpoint storage.

# Key Interfaces

  - Stage: one node of the workflow graph, State in, State out.
  - Generator, Searcher, Retriever, Converter, Publisher: external collaborators.
  - CheckpointStore: persists run snapshots between stages.
  - DistributedLocker: coordinates access to a run across replicas.
*/
package ports
