package usecase

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// ragPromptTemplate is the built-in RAG prompt. The wording is shared with
// the other deployments of this pipeline and must stay byte-compatible.
const ragPromptTemplate = "\n### You are a helpful, respectful and honest assistant to help the user with questions. " +
	"Please refer to the search results obtained from the local knowledge base. " +
	"But be careful to not incorporate the information that you think is not relevant to the question. " +
	"If you don't know the answer to a question, please don't share false information. \n" +
	"\n### Search results: {context} \n\n### Question: {question} \n\n### Answer:\n"

var templatePlaceholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// GenerateRAGPrompt renders the built-in RAG prompt from the question and
// the context documents.
func GenerateRAGPrompt(question string, documents []string) string {
	prompt := strings.ReplaceAll(ragPromptTemplate, "{context}", strings.Join(documents, "\n"))
	return strings.ReplaceAll(prompt, "{question}", question)
}

// RenderPrompt applies the caller's chat template when its placeholder set
// is exactly {question} and {context}, or {question} alone. Any other
// placeholder set is a non-fatal warning and the built-in RAG template
// applies instead.
func RenderPrompt(chatTemplate, question string, documents []string, logger *slog.Logger) string {
	if chatTemplate == "" {
		return GenerateRAGPrompt(question, documents)
	}

	vars := templatePlaceholders(chatTemplate)
	switch {
	case len(vars) == 2 && vars[0] == "context" && vars[1] == "question":
		prompt := strings.ReplaceAll(chatTemplate, "{context}", strings.Join(documents, "\n"))
		return strings.ReplaceAll(prompt, "{question}", question)
	case len(vars) == 1 && vars[0] == "question":
		return strings.ReplaceAll(chatTemplate, "{question}", question)
	default:
		logger.Warn("chat_template_unsupported",
			slog.Any("placeholders", vars),
			slog.String("supported", "[question context] or [question]"))
		return GenerateRAGPrompt(question, documents)
	}
}

// templatePlaceholders returns the sorted, de-duplicated placeholder names.
func templatePlaceholders(template string) []string {
	seen := make(map[string]struct{})
	var vars []string
	for _, match := range templatePlaceholderRe.FindAllStringSubmatch(template, -1) {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}
