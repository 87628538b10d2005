package codec

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct so that both ends can evolve
// fields additively without shared generated code.

// #region value-helpers
func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func num(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func floatList(v []float32) *structpb.Value {
	vals := make([]*structpb.Value, len(v))
	for i, f := range v {
		vals[i] = structpb.NewNumberValue(float64(f))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func toFloat32s(v *structpb.Value) []float32 {
	vals := v.GetListValue().GetValues()
	out := make([]float32, len(vals))
	for i, x := range vals {
		out[i] = float32(x.GetNumberValue())
	}
	return out
}

func stringList(v []string) *structpb.Value {
	vals := make([]*structpb.Value, len(v))
	for i, s := range v {
		vals[i] = structpb.NewStringValue(s)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func toStrings(v *structpb.Value) []string {
	vals := v.GetListValue().GetValues()
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	for i, x := range vals {
		out[i] = x.GetStringValue()
	}
	return out
}

func fields(m map[string]*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: m}
}

// #endregion value-helpers

// #region embed-wire
func encodeEmbedRequest(text string) *structpb.Struct {
	return fields(map[string]*structpb.Value{"text": structpb.NewStringValue(text)})
}

func decodeEmbedRequest(s *structpb.Struct) string {
	return str(s, "text")
}

func encodeEmbedResponse(vec []float32) *structpb.Struct {
	return fields(map[string]*structpb.Value{"embedding": floatList(vec)})
}

func decodeEmbedResponse(s *structpb.Struct) []float32 {
	return toFloat32s(s.GetFields()["embedding"])
}

// #endregion embed-wire

// #region generate-wire
func encodeGenerateRequest(req GenerateRequest) *structpb.Struct {
	return fields(map[string]*structpb.Value{
		"prompt":     structpb.NewStringValue(req.Prompt),
		"context":    structpb.NewStringValue(req.Context),
		"decision":   structpb.NewStringValue(req.Decision),
		"max_tokens": structpb.NewNumberValue(float64(req.MaxTokens)),
	})
}

func decodeGenerateRequest(s *structpb.Struct) GenerateRequest {
	return GenerateRequest{
		Prompt:    str(s, "prompt"),
		Context:   str(s, "context"),
		Decision:  str(s, "decision"),
		MaxTokens: int(num(s, "max_tokens")),
	}
}

func encodeGenerateResponse(res GenerateResult) (*structpb.Struct, error) {
	m := map[string]*structpb.Value{
		"text":          structpb.NewStringValue(res.Text),
		"output_tokens": structpb.NewNumberValue(float64(res.OutputTokens)),
		"model": structpb.NewStructValue(fields(map[string]*structpb.Value{
			"alias": structpb.NewStringValue(res.ModelAlias),
			"base":  structpb.NewStringValue(res.ModelBase),
			"hash":  structpb.NewStringValue(res.ModelHash),
		})),
	}
	if res.Data != nil {
		data, err := structpb.NewStruct(res.Data)
		if err != nil {
			return nil, fmt.Errorf("encode generate data: %w", err)
		}
		m["data"] = structpb.NewStructValue(data)
	}
	return fields(m), nil
}

func decodeGenerateResponse(s *structpb.Struct) GenerateResult {
	model := s.GetFields()["model"].GetStructValue()
	res := GenerateResult{
		Text:         str(s, "text"),
		OutputTokens: int(num(s, "output_tokens")),
		ModelAlias:   str(model, "alias"),
		ModelBase:    str(model, "base"),
		ModelHash:    str(model, "hash"),
	}
	if data := s.GetFields()["data"].GetStructValue(); data != nil {
		res.Data = data.AsMap()
	}
	return res
}

// #endregion generate-wire

// #region search-wire
func encodeSearchRequest(query string, topK int, threshold float32) *structpb.Struct {
	return fields(map[string]*structpb.Value{
		"query_text":           structpb.NewStringValue(query),
		"top_k":                structpb.NewNumberValue(float64(topK)),
		"similarity_threshold": structpb.NewNumberValue(float64(threshold)),
	})
}

func decodeSearchRequest(s *structpb.Struct) (string, int, float32) {
	return str(s, "query_text"), int(num(s, "top_k")), float32(num(s, "similarity_threshold"))
}

func encodeSearchResponse(results []SearchResult) *structpb.Struct {
	vals := make([]*structpb.Value, len(results))
	for i, r := range results {
		vals[i] = structpb.NewStructValue(fields(map[string]*structpb.Value{
			"id":            structpb.NewStringValue(r.ID),
			"text":          structpb.NewStringValue(r.Text),
			"score":         structpb.NewNumberValue(float64(r.Score)),
			"metadata_json": structpb.NewStringValue(r.MetadataJSON),
		}))
	}
	return fields(map[string]*structpb.Value{
		"results": structpb.NewListValue(&structpb.ListValue{Values: vals}),
	})
}

func decodeSearchResponse(s *structpb.Struct) []SearchResult {
	vals := s.GetFields()["results"].GetListValue().GetValues()
	results := make([]SearchResult, len(vals))
	for i, v := range vals {
		r := v.GetStructValue()
		results[i] = SearchResult{
			ID:           str(r, "id"),
			Text:         str(r, "text"),
			Score:        float32(num(r, "score")),
			MetadataJSON: str(r, "metadata_json"),
		}
	}
	return results
}

// #endregion search-wire

// #region check-wire
func encodeCheckRequest(pre, post string) *structpb.Struct {
	return fields(map[string]*structpb.Value{
		"pre":  structpb.NewStringValue(pre),
		"post": structpb.NewStringValue(post),
	})
}

func decodeCheckRequest(s *structpb.Struct) (string, string) {
	return str(s, "pre"), str(s, "post")
}

func encodeCheckResponse(res CheckResult) *structpb.Struct {
	return fields(map[string]*structpb.Value{
		"blocked":         structpb.NewBoolValue(res.Blocked),
		"rules_triggered": stringList(res.RulesTriggered),
		"version":         structpb.NewStringValue(res.Version),
	})
}

func decodeCheckResponse(s *structpb.Struct) CheckResult {
	return CheckResult{
		Blocked:        boolean(s, "blocked"),
		RulesTriggered: toStrings(s.GetFields()["rules_triggered"]),
		Version:        str(s, "version"),
	}
}

// #endregion check-wire
