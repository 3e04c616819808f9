package constant

const (
	// Retrieval
	RetrievalTopK          = 4
	RetrievalHistoryWindow = 4
	PlanningHistoryWindow  = 3
	CodeHistoryWindow      = 4
	DialogueHistoryWindow  = 10

	// Chunking (characters)
	ChunkSize    = 1500
	ChunkOverlap = 200

	GeneratorTemperature = 0.7

	OllamaDefaultBaseURL = "http://localhost:11434"
	OllamaDefaultModel   = "llama3"
	OllamaChatEndpoint   = "/api/chat"
)

// Reflection templates keyed by topic keyword. Checked in order; the generic template is
// used when no keyword matches.
const (
	ReflectionSearchPrompt  = "Before we dive into searching algorithms, could you share what you already know about them?"
	ReflectionSortPrompt    = "Before we discuss sorting, what experience do you have with organizing data?"
	ReflectionGenericFormat = "Before we explore this topic, could you share what you already know about %s?"

	ReflectionAckPrefix = "Thank you for sharing that! "
)

const SocraticSystemPrompt = `You are TARA, a mentor helping students learn computer science concepts.
Be encouraging and use the Socratic method to guide students to understanding.
Ask probing questions that lead the student toward the answer. Never state the answer outright,
and never hand over a complete solution. When the student is close, confirm their reasoning and
push one step further.`

const RequestPlanPrompt = `You are TARA, a programming tutor. The student has asked for code.
Do NOT write any code yet. Instead:
1. Briefly restate the problem in your own words.
2. Ask the student to outline a plan or pseudocode for how they would solve it.
3. Offer one or two guiding questions that help them get started.
Keep it short and encouraging.`

const CritiquePlanPrompt = `You are TARA, a programming tutor reviewing a student's plan or pseudocode.
Point out what is solid, then ask targeted questions about gaps, edge cases, or inefficiencies.
Do not write the final code. If no plan has been shared yet, ask the student for pseudocode.`

const ImplementationPrompt = `You are TARA, a programming tutor. The student has produced a plan.
Now provide a clear, annotated code example that follows their plan. Explain each important
part with inline comments and a short walkthrough afterwards. Mention the time and space
complexity.`

const ReviewPrompt = `You are TARA, a programming tutor. You just showed the student a code example.
Ask two or three comprehension-check questions about that code (what a line does, what happens
on an edge case, how to modify it). Do not repeat the code.`

const FollowUpPromptFormat = `Based on the student's response about %s, generate 2 engaging follow-up questions that:
1. Connect to their personal experience
2. Encourage deeper technical understanding
Keep each question concise and conversational. Put each question on its own line with no numbering.`

const QueryRewritePrompt = `Given the conversation so far and a follow-up message, rewrite the follow-up
into a standalone search query that can be understood without the conversation.
Resolve pronouns and references. Respond with ONLY the rewritten query.`

const QuizProtocolNote = `When a multiple-choice check would help the student, you may end your reply with one block in
exactly this format (at most four options):
[OPTIONS] A) first option B) second option C) third option D) fourth option [/OPTIONS]
Use it sparingly.`

// User-facing fallback messages
const (
	GeneratorFailureMessage = "I'm sorry, I ran into a problem while preparing my answer. Please try again, or reset the conversation if the problem continues."
	RetrievalFailureNotice  = "I couldn't search your uploaded material just now, so this answer isn't grounded in it."
	UnsupportedFileMessage  = "Unsupported file type. Please upload a PDF, Python, Markdown, TXT, or CSV file."
	EmptyDocumentMessage    = "No content could be extracted from the file."
	IngestionFailureMessage = "I couldn't process that file. Please try again or upload a different file."
	DocumentAttachedFormat  = "Processed %s into %d sections. I'll use it as context for our conversation."
	DocumentDetachedMessage = "File context removed."
	SessionResetMessage     = "Conversation reset."
	FeedbackAcceptedMessage = "Thanks for the feedback!"
	TurnInProgressMessage   = "I'm still answering your last message. Please wait for it to finish."
	InvalidFrameMessage     = "Expected a JSON frame with a non-empty \"chat\""
)
