// Package s3 stores packed volumes in Amazon S3.
//
//	client, err := s3.LoadClient(ctx, "eu-central-1", "")
//	store := s3.NewStore(client, "volumes", "chameleon/")
//
// Manifests are written with a single PutObject; brick data files stream
// through the multipart upload manager. Reads are ranged GETs.
package s3
