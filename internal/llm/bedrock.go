package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// BedrockConverser is the subset of the Bedrock runtime client used here.
type BedrockConverser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider calls the Bedrock Converse API (Nova, Claude on Bedrock, ...).
type BedrockProvider struct {
	client BedrockConverser
}

// NewBedrockProvider builds a provider from a loaded AWS config.
func NewBedrockProvider(cfg aws.Config) *BedrockProvider {
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}
}

// NewBedrockProviderWithClient is NewBedrockProvider with an explicit client.
func NewBedrockProviderWithClient(c BedrockConverser) *BedrockProvider {
	return &BedrockProvider{client: c}
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) Generate(ctx context.Context, req Request) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(req.MaxTokens)),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	resp, err := p.client.Converse(ctx, input)
	if err != nil {
		return "", p.classify(err)
	}
	return extractConverseText(resp), nil
}

func (p *BedrockProvider) classify(err error) error {
	var (
		unavailable *types.ServiceUnavailableException
		throttled   *types.ThrottlingException
		modelTO     *types.ModelTimeoutException
		denied      *types.AccessDeniedException
	)
	var kind ErrorKind
	switch {
	case errors.As(err, &unavailable), errors.As(err, &throttled):
		kind = KindOverloaded
	case errors.As(err, &modelTO), errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &denied):
		kind = KindAuth
	default:
		status := 0
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) {
			status = respErr.HTTPStatusCode()
		}
		kind = classifyStatus(status, err.Error())
	}
	return &ProviderError{Provider: p.Name(), Kind: kind, Err: fmt.Errorf("bedrock converse: %w", err)}
}

func extractConverseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var text string
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	return text
}
