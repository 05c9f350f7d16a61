// Package s3 publishes datasets to Amazon S3 and records them in a
// DynamoDB catalog.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "datasets/")
//	catalog := s3.NewCatalog(dynamodb.NewFromConfig(cfg), "predgt-datasets")
//
// # Features
//
//   - Multipart uploads with CRC32C integrity checks for large datasets
//   - Configurable key prefix
//   - Conditional catalog writes so a dataset id is registered once
package s3
