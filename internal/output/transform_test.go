package output

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	clierrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty is ok", input: "", wantErr: false},
		{name: "simple fields", input: "id,name", wantErr: false},
		{name: "alias and index", input: "first=items[0],name", wantErr: false},
		{name: "dot notation index", input: "first=items.0,name", wantErr: false},
		{name: "nested dot notation index", input: "val=tasks.0.state", wantErr: false},
		{name: "quoted key", input: "start=properties['system:time_start']", wantErr: false},
		{name: "invalid path", input: "name=", wantErr: true},
		{name: "invalid bracket", input: "name[", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFields(tt.input)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
		})
	}
}

func TestApplyOutputTransforms_ProjectFields(t *testing.T) {
	data := []map[string]interface{}{
		{
			"id":   "1",
			"name": "Alpha",
			"arr":  []interface{}{"x", "y"},
		},
	}

	ctx := WithFields(context.Background(), "id,name,first=arr[0]")
	got, err := applyOutputTransforms(ctx, data, FormatJSON)
	if err != nil {
		t.Fatalf("applyOutputTransforms returned error: %v", err)
	}

	want := []interface{}{
		map[string]interface{}{
			"id":    "1",
			"name":  "Alpha",
			"first": "x",
		},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("projected fields mismatch\nwant: %#v\ngot: %#v", want, got)
	}
}

func TestApplyOutputTransforms_ProjectFields_DotNotationIndex(t *testing.T) {
	data := []map[string]interface{}{
		{
			"id": "1",
			"tasks": []interface{}{
				map[string]interface{}{"state": "RUNNING"},
			},
		},
	}

	ctx := WithFields(context.Background(), "id,state=tasks.0.state")
	got, err := applyOutputTransforms(ctx, data, FormatJSON)
	if err != nil {
		t.Fatalf("applyOutputTransforms returned error: %v", err)
	}

	want := []interface{}{
		map[string]interface{}{
			"id":    "1",
			"state": "RUNNING",
		},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dot notation index mismatch\nwant: %#v\ngot: %#v", want, got)
	}
}

func TestApplyOutputTransforms_ProjectFields_PathAliases(t *testing.T) {
	data := []map[string]interface{}{
		{
			"id": "1",
			"tasks": []interface{}{
				map[string]interface{}{
					"state":         "COMPLETED",
					"error_message": "",
				},
			},
		},
	}

	ctx := WithFields(context.Background(), "id,state=tk.0.st")
	got, err := applyOutputTransforms(ctx, data, FormatJSON)
	if err != nil {
		t.Fatalf("applyOutputTransforms returned error: %v", err)
	}

	want := []interface{}{
		map[string]interface{}{
			"id":    "1",
			"state": "COMPLETED",
		},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("alias projection mismatch\nwant: %#v\ngot: %#v", want, got)
	}
}

func TestApplyOutputTransforms_ProjectFields_QuotedKeysStayLiteral(t *testing.T) {
	data := []map[string]interface{}{
		{
			"id": "1",
			"properties": map[string]interface{}{
				"system:time_start": float64(1262304000000),
			},
		},
	}

	ctx := WithFields(context.Background(), "id,start=pr['system:time_start']")
	got, err := applyOutputTransforms(ctx, data, FormatJSON)
	if err != nil {
		t.Fatalf("applyOutputTransforms returned error: %v", err)
	}

	want := []interface{}{
		map[string]interface{}{
			"id":    "1",
			"start": float64(1262304000000),
		},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("quoted key projection mismatch\nwant: %#v\ngot: %#v", want, got)
	}
}

func TestApplyOutputTransforms_BracketAndDotNotationEquivalent(t *testing.T) {
	data := map[string]interface{}{
		"arr": []interface{}{"a", "b", "c"},
	}

	bracketCtx := WithFields(context.Background(), "val=arr[1]")
	bracketGot, err := applyOutputTransforms(bracketCtx, data, FormatJSON)
	if err != nil {
		t.Fatalf("bracket notation error: %v", err)
	}

	dotCtx := WithFields(context.Background(), "val=arr.1")
	dotGot, err := applyOutputTransforms(dotCtx, data, FormatJSON)
	if err != nil {
		t.Fatalf("dot notation error: %v", err)
	}

	if !reflect.DeepEqual(bracketGot, dotGot) {
		t.Fatalf("bracket and dot notation should produce identical results\nbracket: %#v\ndot: %#v", bracketGot, dotGot)
	}
}

func TestApplyOutputTransforms_JSONPath(t *testing.T) {
	data := map[string]interface{}{
		"results": []interface{}{
			map[string]interface{}{"id": "abc"},
		},
	}

	ctx := WithJSONPath(context.Background(), ".results[0].id")
	got, err := applyOutputTransforms(ctx, data, FormatJSON)
	if err != nil {
		t.Fatalf("applyOutputTransforms returned error: %v", err)
	}

	if got != "abc" {
		t.Fatalf("expected jsonpath result %q, got %#v", "abc", got)
	}
}

func TestApplyOutputTransforms_JSONPath_PathAliases(t *testing.T) {
	data := map[string]interface{}{
		"tasks": []interface{}{
			map[string]interface{}{
				"state":         "FAILED",
				"error_message": "Out of memory",
			},
		},
	}

	ctx := WithJSONPath(context.Background(), "$.tk[0].em")
	got, err := applyOutputTransforms(ctx, data, FormatJSON)
	if err != nil {
		t.Fatalf("applyOutputTransforms returned error: %v", err)
	}

	if got != "Out of memory" {
		t.Fatalf("expected jsonpath alias result %q, got %#v", "Out of memory", got)
	}
}

func TestPrinter_FailEmpty(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithFailEmpty(context.Background(), true)
	printer := NewPrinter(&buf, FormatJSON)

	err := printer.Print(ctx, []interface{}{})
	if err == nil {
		t.Fatalf("expected error for empty result with --fail-empty")
	}
	if !clierrors.IsUserError(err) {
		t.Fatalf("expected user error, got %T", err)
	}
}
