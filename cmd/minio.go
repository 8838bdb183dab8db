package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"otakuwave/storage"

	"github.com/spf13/cobra"
)

var (
	minioBucket    string
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect and manage the storage buckets",
	Long:  `List, summarize or delete objects in the audio and cover buckets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket := minioBucket
		if bucket == "" {
			bucket = cfg.AudioBucket
		}
		fmt.Printf("MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, bucket)

		store, err := storage.InitMinio(cfg)
		if err != nil {
			return err
		}
		if !store.HasBucket(bucket) {
			return fmt.Errorf("unknown bucket %q (expected %s or %s)", bucket, cfg.AudioBucket, cfg.CoverBucket)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if minioDelete {
			if minioPrefix == "" {
				return errors.New("--delete requires --prefix")
			}
			n, err := store.DeletePrefix(ctx, bucket, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d objects under %s\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := store.ListObjects(ctx, bucket, minioPrefix)
		if err != nil {
			return err
		}

		switch {
		case minioRecursive:
			storage.WriteTree(os.Stdout, minioPrefix, objects)
		case !minioStats:
			storage.WriteObjects(os.Stdout, objects)
		}
		if minioStats {
			storage.WriteStats(os.Stdout, stats)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioBucket, "bucket", "b", "", "bucket to operate on (defaults to the audio bucket)")
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "filter objects by prefix, or the prefix to delete")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "show bucket statistics")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "show objects as a directory tree")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under --prefix")

	minioCmd.Example = `  # list the audio bucket
  otakuwave minio

  # cover bucket statistics
  otakuwave minio -b covers -s

  # tree view under a prefix
  otakuwave minio -r -p "1700"

  # delete everything under a prefix
  otakuwave minio -d -p "tmp/"`
}
