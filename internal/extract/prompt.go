package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/lead-generator/internal/model"
)

const systemPrompt = "あなたは企業調査の専門家です。Webページから会社情報を抽出し、指定されたJSONスキーマに従って有効なJSONのみを返します。"

// schema describes the object the model must return.
var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"company_name":      map[string]any{"type": "string", "description": "会社名"},
		"industry":          map[string]any{"type": "string", "description": "業界・業種"},
		"location":          map[string]any{"type": "string", "description": "所在地"},
		"description":       map[string]any{"type": "string", "description": "会社の説明"},
		"business_size":     map[string]any{"type": "string", "enum": []string{"startup", "small", "medium", "large", "enterprise"}},
		"contact_email":     map[string]any{"type": "string", "description": "代表メールアドレス"},
		"phone":             map[string]any{"type": "string", "description": "電話番号"},
		"additional_emails": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"social_media":      map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		"confidence_score":  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	},
	"required": []string{"company_name", "confidence_score"},
}

var schemaJSON = func() string {
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}()

const extractRules = `【抽出ルール】
1. 会社名は正式名称を優先してください
2. 事業規模は従業員数を基準に判定してください（startup: 10名未満、small: 10-50名、medium: 50-300名、large: 300-1000名、enterprise: 1000名以上）
3. メールアドレスは info@、contact@、inquiry@ などの代表アドレスを優先してください
4. confidence_score は抽出結果の確からしさを 0 から 1 で示してください
5. 不明な項目は null にしてください
6. レスポンスは有効なJSONのみを返してください`

func buildExtractPrompt(page model.ScrapedPage, contentLimit int) string {
	var b strings.Builder
	b.WriteString("以下のWebページから会社情報を抽出してください。\n\n")
	fmt.Fprintf(&b, "URL: %s\n", page.URL)
	fmt.Fprintf(&b, "タイトル: %s\n", page.Title)
	fmt.Fprintf(&b, "説明: %s\n\n", page.Description)
	fmt.Fprintf(&b, "【ページ内容】\n%s\n\n", clip(page.Content, contentLimit))
	if hints := contactHints(page); hints != "" {
		fmt.Fprintf(&b, "【検出済み連絡先】\n%s\n\n", hints)
	}
	fmt.Fprintf(&b, "【JSONスキーマ】\n%s\n\n", schemaJSON)
	b.WriteString(extractRules)
	return b.String()
}

func buildEnhancePrompt(company model.CompanyInfo, additional string, contentLimit int) string {
	existing, _ := json.MarshalIndent(company, "", "  ")

	var b strings.Builder
	b.WriteString("既存の会社情報を以下の追加データで強化してください。\n\n")
	fmt.Fprintf(&b, "【既存情報】\n%s\n\n", existing)
	fmt.Fprintf(&b, "【追加データ】\n%s\n\n", clip(additional, contentLimit))
	b.WriteString("追加データを分析して、既存の情報を補完してください。\n")
	fmt.Fprintf(&b, "以下のJSONスキーマに従って、強化された情報を返してください。\n\n%s\n\n", schemaJSON)
	b.WriteString("既存の情報を上書きするのではなく、不足している情報を補完してください。\nレスポンスは有効なJSONのみを返してください。")
	return b.String()
}

func contactHints(page model.ScrapedPage) string {
	var lines []string
	if page.Email != "" {
		lines = append(lines, "メール: "+page.Email)
	}
	if page.Phone != "" {
		lines = append(lines, "電話: "+page.Phone)
	}
	if page.Address != "" {
		lines = append(lines, "住所: "+page.Address)
	}
	return strings.Join(lines, "\n")
}

// clip truncates s to at most n runes. n <= 0 disables the limit.
func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
