package ddbsdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// Store implements ddbstore.Table on a live DynamoDB table, so repositories
// tested against the in-memory store run unchanged in production.
type Store struct {
	awsddb AWSDynamoClientV2
	def    table.Definition
	log    *zap.Logger
	opts   Options
}

var _ ddbstore.Table = (*Store)(nil)

// Options configures a Store.
type Options struct {
	Logger *zap.Logger
	// EventuallyConsistent disables strongly consistent reads for Get and Query.
	// Index queries are always eventually consistent.
	EventuallyConsistent bool
}

// New wraps an existing DynamoDB client.
func New(awsddb AWSDynamoClientV2, def table.Definition, opts Options) (*Store, error) {
	if awsddb == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table definition: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		awsddb: awsddb,
		def:    def,
		log:    logger.With(zap.String("table", def.Name)),
		opts:   opts,
	}, nil
}

// NewFromConfig builds a client from the default AWS configuration chain
// (environment, shared config files, instance roles).
func NewFromConfig(ctx context.Context, def table.Definition, opts Options, optFns ...func(*config.LoadOptions) error) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(dynamodb.NewFromConfig(cfg), def, opts)
}

// Definition returns the table definition.
func (s *Store) Definition() table.Definition {
	return s.def
}

// wrapAPIError adds the operation name and logs the service error code.
func (s *Store) wrapAPIError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		s.log.Debug("dynamodb request failed",
			zap.String("op", op),
			zap.String("code", apiErr.ErrorCode()),
			zap.String("fault", apiErr.ErrorFault().String()),
		)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
