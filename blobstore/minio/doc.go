// Package minio publishes datasets to MinIO and other S3-compatible
// object stores (Ceph, SeaweedFS, Garage) through the MinIO client.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "datasets/")
//	uri, err := predgt.Publish(ctx, store, "run.pgt", data)
package minio
