package security

import "testing"

// TestContentSanitizer_Sanitize はタグ除去と空白処理を確認する。
func TestContentSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "美味しかったです", "美味しかったです"},
		{"empty", "", ""},
		{"whitespace trimmed", "  とても良い  ", "とても良い"},
		{"script removed", `美味しい<script>alert("xss")</script>お店`, "美味しいお店"},
		{"tags stripped", "<p>良い<strong>雰囲気</strong></p>", "良い雰囲気"},
		{"iframe removed", `<iframe src="https://evil.example.com"></iframe>普通`, "普通"},
		{"event attribute removed", `<img src="x" onerror="alert(1)">また行きたい`, "また行きたい"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestContentSanitizer_Idempotent は同一入力への再適用が出力を変えないことを確認する。
func TestContentSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<b>最高</b>のランチ<script>bad()</script>でした`
	once := sanitizer.Sanitize(input)
	twice := sanitizer.Sanitize(once)
	if once != twice {
		t.Errorf("expected idempotent output, got %q then %q", once, twice)
	}
}
