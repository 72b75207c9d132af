// Command ingest serves the item routes of the Lambda backed patterns.
package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/basewarphq/bwsc/bwlwa"
	"github.com/basewarphq/bwsc/lambdas/internal/ingest"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Env is the function environment. The resource variables are set by the
// pattern that deployed the function.
type Env struct {
	bwlwa.BaseEnvironment
	TableName string `env:"DDB_TABLE_NAME"`
	QueueURL  string `env:"SQS_QUEUE_URL"`
}

func main() {
	bwlwa.NewApp[Env](
		func(m *bwlwa.Mux, h *ingest.Handlers) {
			h.Register(m)
		},
		bwlwa.WithAWSClient(func(cfg aws.Config) *dynamodb.Client {
			return dynamodb.NewFromConfig(cfg)
		}),
		bwlwa.WithAWSClient(func(cfg aws.Config) *sqs.Client {
			return sqs.NewFromConfig(cfg)
		}),
		bwlwa.WithFx(fx.Provide(func(rt *bwlwa.Runtime[Env], ddb *dynamodb.Client, q *sqs.Client) *ingest.Handlers {
			env := rt.Env()
			rt.Logger().Info("ingest wired",
				zap.String("table", env.TableName), zap.String("queue_url", env.QueueURL))
			return ingest.New(ingest.Config{TableName: env.TableName, QueueURL: env.QueueURL}, ddb, q)
		})),
	).Run()
}
