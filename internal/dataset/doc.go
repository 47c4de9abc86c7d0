// Package dataset acquires the chart export from Kaggle.
//
// The Manager downloads the configured dataset file through the Kaggle API,
// unpacks the archive when the API serves one, and promotes the result into
// the data directory atomically. Ensure is idempotent: a present, non-empty
// export short-circuits the download, so runs without network access keep
// working once the file is cached.
package dataset
