package llm

// The prompt wording here mirrors what the bot shipped with: a strict
// four-label taxonomy, a JSON-only task decomposition with platform
// routing, a verifier limited to three verdicts, and a summarizer that may
// only restate supplied task results.

const classificationPrompt = `You are an AI message classification assistant. Classify the message content into EXACTLY ONE of the following categories:

"meeting" — content primarily focused on organizing or referencing a meeting:
    meeting invitations with date/time details, video conferencing links
    (Zoom, Teams, Google Meet, etc.), scheduling or rescheduling discussions.

"transcript" — content that captures actual conversation dialogue, especially
    about GitHub or Jira. MUST have a dialogue format with named speakers
    followed by their statements, or explicitly summarize such an exchange.

"instructions" — clear action items or task directives related to GitHub or
    Jira, NOT in dialogue format. Examples: "Please create a new GitHub
    repository for XYZ", "Create a Jira board for the XYZ project",
    "Update the story points on DEV-123".

"greeting" — anything that does not clearly fit the categories above:
    simple greetings, wellbeing questions, casual conversation,
    acknowledgments, thanks.

Rules:
- Select EXACTLY ONE category for the primary purpose of the message.
- Mixed content is classified by its main intent (a greeting plus GitHub
  instructions is "instructions").
- Named speakers with quotations strongly indicate "transcript".
- Simple mentions of GitHub/Jira without specific tasks are not "instructions".
- When in doubt between "greeting" and another category, choose the more
  specific category.

Message content:
%s

Return exactly one word from the list above. If uncertain, choose "greeting".`

const extractionPrompt = `You are a task analyzer. Given message content, extract each GitHub and Jira related task and decide whether each task belongs in GitHub or Jira. Analyze the content completely and make sure no GitHub or Jira task is left behind.

Required JSON format:
[
  {
    "title": "Short task title",
    "description": "Detailed task description",
    "platform": "jira" or "git"
  }
]

Rules:
- Always include the GitHub repository name in both title and description
  for git tasks.
- Always include the project key and project name in capital letters for
  jira tasks.
- Return ONLY the JSON array, with no commentary. Return [] when the
  content contains no actionable task.

Message content:
"""
%s
"""`

const verificationPrompt = `Analyze the following %s API response and determine if the operation was successful or resulted in an error.

Response: %s

Return ONLY one of the following status values:
- "completed" if the operation was successful
- "failed" if there was an error
- "pending" if the status is unclear

Status:`

const summaryPrompt = `You are an assistant generating a final user-facing response. Use ONLY the tasks listed below and their replies to create a well-structured summary.

Instructions:
- DO NOT include or repeat the task titles.
- Summarize the results naturally as if informing the user of completed work.
- Include all relevant links and names exactly as provided.
- Use a clear, friendly, and professional tone.
- Do not add any information not found in the input.

Tasks and responses for message %s:
%s

Final response to the user:`

const chatSystemPrompt = `You are a helpful assistant responding to messages. Be polite and conversational. Refer to the user's name if available in the history. Keep responses concise.`
