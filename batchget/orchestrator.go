// Package batchget executes multi-table batch reads against a storage engine
// in a single call and shapes the per-table response.
package batchget

import (
	"context"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/types"
	"github.com/rs/zerolog"
)

// Engine is the storage engine side of a batch read
type Engine interface {
	ExecuteGetBatch(ctx context.Context, requests []types.GetItemRequest) ([]types.GetResult, []types.GetItemRequest, error)
}

// Parser turns the client request items into get requests
type Parser interface {
	ParseBatchGetRequestItems(requestItems map[string]ddbtypes.KeysAndAttributes) ([]types.GetItemRequest, error)
}

// Formatter shapes items and unprocessed keys for the response
type Formatter interface {
	FormatItemAttributes(item types.Item) map[string]ddbtypes.AttributeValue
	FormatBatchGetUnprocessed(unprocessed []types.GetItemRequest, requestItems map[string]ddbtypes.KeysAndAttributes) map[string]ddbtypes.KeysAndAttributes
}

// Response is the result of a batch read
type Response struct {
	Responses       map[string][]map[string]ddbtypes.AttributeValue
	UnprocessedKeys map[string]ddbtypes.KeysAndAttributes
}

// Orchestrator runs batch reads. It keeps no state between calls.
type Orchestrator struct {
	engine    Engine
	parser    Parser
	formatter Formatter
	logger    zerolog.Logger
}

// New creates an Orchestrator
func New(engine Engine, parser Parser, formatter Formatter, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		engine:    engine,
		parser:    parser,
		formatter: formatter,
		logger:    logger.With().Str("component", "batchget").Logger(),
	}
}

// Execute reads every requested key with one engine call. Tables without
// found items are absent from Responses; keys the engine could not service
// are returned in UnprocessedKeys as the client sent them. Engine errors are
// returned unmodified and nothing is retried.
func (o *Orchestrator) Execute(ctx context.Context, requestItems map[string]ddbtypes.KeysAndAttributes) (*Response, error) {
	requests, err := o.parser.ParseBatchGetRequestItems(requestItems)
	if err != nil {
		return nil, err
	}

	results, unprocessed, err := o.engine.ExecuteGetBatch(ctx, requests)
	if err != nil {
		o.logger.Debug().Err(err).Int("requests", len(requests)).Msg("batch get failed")

		return nil, err
	}

	responses := map[string][]map[string]ddbtypes.AttributeValue{}

	for _, result := range results {
		if len(result.Items) == 0 {
			continue
		}

		responses[result.TableName] = append(responses[result.TableName], o.formatter.FormatItemAttributes(result.Items[0]))
	}

	if len(unprocessed) > 0 {
		o.logger.Warn().Int("unprocessed", len(unprocessed)).Msg("batch get returned unprocessed keys")
	}

	return &Response{
		Responses:       responses,
		UnprocessedKeys: o.formatter.FormatBatchGetUnprocessed(unprocessed, requestItems),
	}, nil
}
