package usecase

import (
	"strings"
	"text/template"
)

const systemPrompt = `You are an assistant that helps people write resumes for United States federal government jobs. Base everything only on the text you are given and never invent experience.`

var keywordsTemplate = template.Must(template.New("keywords").Parse(`Read the federal job posting below and list the specific skills, knowledge areas, tools and responsibilities an applicant must show specialized experience in.

Return strict JSON with structure:
{"keywords": [string]}

Use short noun phrases, no duplicates, at most 40 keywords. Return ONLY the raw JSON without any markdown formatting, code blocks, or additional text.

Job posting:
{{ .Description }}`))

var topicsTemplate = template.Must(template.New("topics").Parse(`Group the keywords from the federal job posting "{{ .Title }}" into a small number of qualification topics. Every keyword must belong to exactly one topic. Give each topic a short title and a one sentence description of what experience would demonstrate it.

Return strict JSON with structure:
{"topics": [{"title": string, "description": string, "keywords": [string]}]}

Return between 2 and 8 topics. Return ONLY the raw JSON without any markdown formatting, code blocks, or additional text.

Keywords:
{{ range .Keywords }}- {{ . }}
{{ end }}`))

var matchTemplate = template.Must(template.New("match").Funcs(funcs).Parse(`Decide which qualification topics the applicant's past job gives evidence for. Only match a topic when the job's responsibilities clearly show relevant experience.

Return strict JSON with structure:
{"matches": [{"topic_id": string, "evidence": string}]}

"evidence" is one or two sentences quoting or summarizing the part of the job that demonstrates the topic. Return an empty list when nothing matches. Return ONLY the raw JSON without any markdown formatting, code blocks, or additional text.

Topics:
{{ range .Topics }}- id: {{ .ID }}
  title: {{ .Title }}
  description: {{ .Description }}
  keywords: {{ join .Keywords ", " }}
{{ end }}
Past job:
Title: {{ .PastJob.Title }}
Organization: {{ .PastJob.Organization }}
{{- if .PastJob.GSLevel }}
Grade: {{ .PastJob.GSLevel }}
{{- end }}
Responsibilities:
{{ .PastJob.Responsibilities }}`))

var paragraphTemplate = template.Must(template.New("paragraph").Funcs(funcs).Parse(`You are interviewing an applicant to write one resume paragraph that proves the qualification "{{ .Topic.Title }}" using their job "{{ .PastJob.Title }}" at {{ .PastJob.Organization }}.

What the topic covers: {{ .Topic.Description }}
Keywords to work in where true: {{ join .Topic.Keywords ", " }}
Evidence found so far: {{ .Qualification.Description }}
Job responsibilities:
{{ .PastJob.Responsibilities }}

Ask short follow-up questions about scope, results and numbers until you have enough detail, then write the paragraph in first person implied voice (no "I"), three to five sentences, with concrete outcomes.

Every reply must be strict JSON with structure:
{"message": string, "paragraph": string, "complete": boolean}

"message" is what you say to the applicant. "paragraph" is your best draft so far, or an empty string. Set "complete" to true only when the paragraph is final. Return ONLY the raw JSON without any markdown formatting, code blocks, or additional text.`))

var funcs = template.FuncMap{"join": strings.Join}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
