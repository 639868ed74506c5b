package llm

const opinionPrompt = `You are the %s. Your focus: %s.

Read the material below and give your own opinion about it from your focus only.

%s

Respond ONLY with JSON, no markdown fences:
{
  "summary": "3-5 sentence opinion",
  "recommendations": [{"title": "short title", "description": "one sentence", "priority": "high|medium|low"}],
  "confidence": 0.0
}
confidence is how sure you are, from 0 to 1.`

const analyzePrompt = `Compare the two opinions below about the same subject.

Opinion A:
%s

Opinion B:
%s

List the topics both opinions agree on and the topics where they disagree.
Rate disagreement severity as high (cannot both be followed), medium (different emphasis that changes the plan) or low (wording or detail).
Also rate how confident each opinion sounds, from 0 to 1.

Respond ONLY with JSON, no markdown fences:
{
  "agreements": [{"topic": "...", "consensus": "shared position", "confidence": 0.0}],
  "disagreements": [{"topic": "...", "textA": "A's position", "textB": "B's position", "severity": "high|medium|low"}],
  "confidenceOriginal": 0.0,
  "confidenceSecond": 0.0
}`

const mergePrompt = `Merge the two opinions below into one narrative for the reader.

Opinion A from the %s (confidence %.2f):
%s

Opinion B from the %s (confidence %.2f):
%s

%s

Respond ONLY with JSON, no markdown fences:
{"summary": "merged narrative, 3-6 sentences", "notes": "one sentence on what was reconciled or left open"}`

const (
	balancedInstruction = "Weigh both opinions equally."
	preferAInstruction  = "Lead with opinion A and use opinion B to fill gaps."
	preferBInstruction  = "Lead with opinion B and use opinion A to fill gaps."
)
