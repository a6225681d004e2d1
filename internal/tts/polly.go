package tts

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

const (
	pollyDefaultVoice1 = "Matthew"
	pollyDefaultVoice2 = "Ruth"
)

// pollyVoiceLang maps voice IDs to their language codes.
var pollyVoiceLang = map[string]types.LanguageCode{
	"Matthew":  types.LanguageCodeEnUs,
	"Ruth":     types.LanguageCodeEnUs,
	"Stephen":  types.LanguageCodeEnUs,
	"Danielle": types.LanguageCodeEnUs,
	"Amy":      types.LanguageCodeEnGb,
	"Olivia":   types.LanguageCodeEnAu,
}

// PollyAPI is the subset of the Polly client used here.
type PollyAPI interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollySynthesizer uses AWS Polly's generative engine. Request chaining is
// not supported and PreviousRequestIDs is ignored.
type PollySynthesizer struct {
	client PollyAPI
	voices VoiceMap
}

func NewPollySynthesizer(cfg aws.Config, voice1, voice2 string) *PollySynthesizer {
	return NewPollySynthesizerWithClient(polly.NewFromConfig(cfg), voice1, voice2)
}

func NewPollySynthesizerWithClient(client PollyAPI, voice1, voice2 string) *PollySynthesizer {
	voices := VoiceMap{
		Speaker1: Voice{ID: pollyDefaultVoice1, Name: pollyDefaultVoice1},
		Speaker2: Voice{ID: pollyDefaultVoice2, Name: pollyDefaultVoice2},
	}
	return &PollySynthesizer{client: client, voices: voices.withOverrides(voice1, voice2)}
}

func (p *PollySynthesizer) Name() string { return "polly" }

func (p *PollySynthesizer) DefaultVoices() VoiceMap { return p.voices }

func (p *PollySynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	lang, ok := pollyVoiceLang[req.Voice.ID]
	if !ok {
		lang = types.LanguageCodeEnUs
	}
	out, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       types.EngineGenerative,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String("24000"),
		Text:         aws.String(req.Text),
		TextType:     types.TextTypeText,
		VoiceId:      types.VoiceId(req.Voice.ID),
		LanguageCode: lang,
	})
	if err != nil {
		return nil, pollyError(err)
	}
	return &Audio{Body: out.AudioStream}, nil
}

// pollyError lifts the API error code and HTTP status out of an SDK error.
func pollyError(err error) *SynthesisError {
	se := &SynthesisError{Provider: "polly", Message: "synthesize", Cause: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		se.Message = apiErr.ErrorCode()
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		se.StatusCode = respErr.HTTPStatusCode()
	}
	return se
}
