package pdfprocessor

import (
	"fmt"
)

// Supported summary languages. Any language other than LanguageJapanese
// uses the English prompts.
const (
	LanguageJapanese = "ja"
	LanguageEnglish  = "en"
)

// promptSet holds the three templates for one language.
// Chunk takes the chunk text; Final takes maxLength and the joined
// partial summaries; Single takes maxLength and the full text.
type promptSet struct {
	Chunk  string
	Final  string
	Single string
}

var japanesePrompts = promptSet{
	Chunk: "以下のテキストの要点を簡潔にまとめてください。重要な情報を漏らさないようにしてください。\n\n" +
		"テキスト:\n%s\n\n要点:",
	Final: "以下は文書の各部分の要約です。これらを統合して、%d文字程度の包括的な要約を作成してください。\n\n" +
		"各部分の要約:\n%s\n\n最終要約:",
	Single: "以下のテキストを%d文字程度で簡潔に要約してください。重要なポイントを漏らさず、分かりやすい日本語で要約してください。\n\n" +
		"テキスト:\n%s\n\n要約:",
}

var englishPrompts = promptSet{
	Chunk: "Summarize the key points of the following text concisely. Do not miss important information.\n\n" +
		"Text:\n%s\n\nKey points:",
	Final: "The following are summaries of different parts of a document. " +
		"Create a comprehensive summary of approximately %d words by integrating these parts.\n\n" +
		"Part summaries:\n%s\n\nFinal summary:",
	Single: "Please summarize the following text in approximately %d words. " +
		"Focus on the key points and make it clear and concise.\n\n" +
		"Text:\n%s\n\nSummary:",
}

func promptsFor(language string) promptSet {
	if language == LanguageJapanese {
		return japanesePrompts
	}
	return englishPrompts
}

// ChunkPrompt builds the key-point extraction prompt for one chunk.
func ChunkPrompt(language, chunk string) string {
	return fmt.Sprintf(promptsFor(language).Chunk, chunk)
}

// FinalPrompt builds the prompt that merges partial summaries.
func FinalPrompt(language, combined string, maxLength int) string {
	return fmt.Sprintf(promptsFor(language).Final, maxLength, combined)
}

// SinglePrompt builds the prompt for text short enough to summarize at once.
func SinglePrompt(language, text string, maxLength int) string {
	return fmt.Sprintf(promptsFor(language).Single, maxLength, text)
}
