// utils/firebase.go
package utils

import (
	"context"
	"fmt"

	"venuedir/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

var FirestoreClient *firestore.Client

// FirebaseInit initializes the Firebase App and its Firestore client.
func FirebaseInit(ctx context.Context) (*firestore.Client, error) {
	var opts []option.ClientOption
	if path := config.AppConfig.FirebaseCredentialsFile; path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     config.AppConfig.FirebaseProjectID,
		StorageBucket: config.AppConfig.FirebaseBucketName,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
	}

	FirestoreClient = client
	return client, nil
}
