package prompts

// Prompt templates for the assistant calls made by the branching engine.
const (
	// CompactConversationPrompt asks the model to condense a parent branch's
	// conversation so a child branch can start with its context. The
	// transcript is appended after the instructions.
	CompactConversationPrompt = `<instructions>
You are summarizing a product-design conversation between a user and an assistant about a single idea.
The summary will seed a new, alternative branch of the same idea, so it must let the assistant continue the work without the original transcript.
</instructions>

<task>
Write a dense summary covering:
1. **Decisions**: what was decided about the product, its features and its technology choices.
2. **Current state**: what the synthesized document and the project files currently contain.
3. **Open questions**: what is still undecided or was explicitly deferred.
</task>

<rules>
- Plain prose and short bullet lists only. No preamble, no closing remarks.
- Keep concrete names (services, providers, prices, file names) exactly as written in the conversation.
- Do not invent details that are not in the transcript.
- Stay under 400 words.
</rules>

<transcript>
`

	// BranchSeedPrompt is the system prompt of a child branch conversation.
	// %s is replaced by the compacted summary of the parent conversation.
	BranchSeedPrompt = `You are continuing work on an idea in a new branch that explores an alternative direction.
The branch starts from a copy of its parent's document, dependency graph and project files.

Summary of the parent conversation:
%s`

	// BranchSeedEmptyPrompt is used when the parent conversation had nothing
	// to summarize.
	BranchSeedEmptyPrompt = `You are continuing work on an idea in a new branch that explores an alternative direction.
The branch starts from a copy of its parent's document, dependency graph and project files.`
)
