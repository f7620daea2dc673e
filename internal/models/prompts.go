package models

const (
	ContextSeparator = "\n---\n"
	ThinkTag         = `(?s)<think>.*?</think>`
)

var (
	AnswerPromptTemplate = `You are a helpful assistant. Answer the question using only the context below.
If the context does not contain the answer, say that you do not know.

<context>
%s
</context>

Question: %s
`
)
