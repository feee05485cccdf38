// Package movielens is a batch experimentation pipeline for movie rating
// recommenders.
//
// A run prepares the ratings dataset, trains one recommender selected by
// configuration profile, evaluates it on a held-out split and records the
// run in a local tracking store so that runs can be compared:
//
//	movielens run --profile baseline
//	movielens run --profile classic
//	movielens runs --experiment movielens
//	movielens recommend --run <run id> --user 1 -n 10
//
// # Layout
//
//   - dataset: rating records, CSV load and write, cleaning, schema checks,
//     seeded splitting and profiling
//   - features: the load, clean, validate, transform and write stages
//   - recommender: the baseline and classic models and the model registry
//   - training: the trainer state machine
//   - evaluate, plotting: metrics and residual figures for a fitted model
//   - tracking: experiment runs stored in SQLite
//   - pipeline: features followed by training for one configuration
//   - config: layered koanf configuration
//   - linear, preprocessing, metrics, core: numeric building blocks on gonum
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Adding a model
//
// Implement core/model.Recommender and add a factory to the registry map in
// package recommender. The trainer only sees the registry.
package movielens
