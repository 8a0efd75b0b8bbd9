package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"shop-ledger/internal/core"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// maxToolRounds bounds how many times the model may call lookups before answering.
const maxToolRounds = 4

// Summarizer writes the monthly business narrative.
type Summarizer interface {
	SummarizeMonth(ctx context.Context, month core.MonthSummary, tools *ToolRegistry) (*BusinessSummary, error)
}

type Agent struct {
	client *openai.Client
	model  string
	shop   core.ShopProfile
}

// NewAgent builds an agent for model. Extra request options are passed to the OpenAI client.
func NewAgent(apiKey, model string, shop core.ShopProfile, opts ...option.RequestOption) *Agent {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Agent{client: &client, model: model, shop: shop}
}

func (a *Agent) SummarizeMonth(ctx context.Context, month core.MonthSummary, tools *ToolRegistry) (*BusinessSummary, error) {
	if tools == nil {
		tools = NewToolRegistry()
	}
	metrics, err := json.MarshalIndent(month, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal month metrics: %w", err)
	}
	prompt := fmt.Sprintf(`You are a business analyst for %s, a small computer shop.
Write a short monthly review for the owner from the ledger metrics below.
Rules:
1. Use ONLY the numbers given or returned by the tools. Never invent figures.
2. Amounts are in the shop's currency and must be quoted as given (e.g. "1250.00").
3. Mention unpaid and partially paid balances and expiring warranties when they are non-zero.
4. Keep each list entry to one sentence.
5. You may call the tools to compare with earlier months or inspect a customer before answering.

Metrics for %04d-%02d:
%s`, a.shop.Name, month.Year, int(month.Month), metrics)

	schema, err := SchemaFor[BusinessSummary]()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "monthly_business_summary",
					Strict:      param.NewOpt(true),
					Schema:      schema,
					Description: param.NewOpt("A monthly review of the shop's invoices and collections"),
				},
			},
		},
	}
	if len(tools.All()) > 0 {
		params.Tools = tools.ToOpenAITools()
	}

	for range maxToolRounds {
		resp, err := a.client.Responses.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("openai responses error: %w", err)
		}

		var outputs responses.ResponseInputParam
		for _, item := range resp.Output {
			if item.Type != "function_call" {
				continue
			}
			call := item.AsFunctionCall()
			slog.DebugContext(ctx, "summary tool call", "tool", call.Name, "args", call.Arguments)
			outputs = append(outputs, responses.ResponseInputItemParamOfFunctionCallOutput(call.CallID, tools.Call(ctx, call.Name, call.Arguments)))
		}
		if len(outputs) == 0 {
			return parseSummary(resp.OutputText())
		}

		params.PreviousResponseID = param.NewOpt(resp.ID)
		params.Input = responses.ResponseNewParamsInputUnion{OfInputItemList: outputs}
	}
	return nil, fmt.Errorf("model did not produce a summary after %d tool rounds", maxToolRounds)
}

func parseSummary(content string) (*BusinessSummary, error) {
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	var s BusinessSummary
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("summary validation failed: %w", err)
	}
	return &s, nil
}
