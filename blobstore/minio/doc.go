// Package minio stores packed volumes on MinIO or any other S3-compatible
// server through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	store := minioblob.NewStore(client, "volumes", "chameleon/")
//	src, err := source.Open(ctx, store)
//
// Brick payloads are fetched with ranged GETs, one request per brick.
package minio
