package retriever

import (
	"testing"

	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

func TestFilterExpr(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"empty", Filter{}, ""},
		{"grade only", Filter{Grade: 5}, "grade == 5"},
		{"subject only", Filter{Subject: "matematik"}, `subject == "matematik"`},
		{"both", Filter{Grade: 7, Subject: "fen_bilimleri"}, `grade == 7 && subject == "fen_bilimleri"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.expr(); got != tt.want {
				t.Errorf("expr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbeddingDim_ReadsSchema(t *testing.T) {
	schema := &milvusentity.Schema{Fields: []*milvusentity.Field{
		{Name: "id"},
		{Name: "embedding", TypeParams: map[string]string{milvusentity.TypeParamDim: "1536"}},
	}}
	dim, err := embeddingDim(schema)
	if err != nil {
		t.Fatalf("embeddingDim: %v", err)
	}
	if dim != 1536 {
		t.Errorf("dim = %d, want 1536", dim)
	}
}

func TestEmbeddingDim_Errors(t *testing.T) {
	if _, err := embeddingDim(nil); err == nil {
		t.Error("nil schema should error")
	}
	noVector := &milvusentity.Schema{Fields: []*milvusentity.Field{{Name: "id"}}}
	if _, err := embeddingDim(noVector); err == nil {
		t.Error("schema without an embedding field should error")
	}
	badDim := &milvusentity.Schema{Fields: []*milvusentity.Field{
		{Name: "embedding", TypeParams: map[string]string{milvusentity.TypeParamDim: "abc"}},
	}}
	if _, err := embeddingDim(badDim); err == nil {
		t.Error("non-numeric dim should error")
	}
}

func TestClampK(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{5, 5},
		{20, 20},
		{100, 20},
	}
	for _, tt := range tests {
		if got := clampK(tt.in); got != tt.want {
			t.Errorf("clampK(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
