package flow

const classifySystemPrompt = `You are an intent classifier for a cooking assistant.
Classify the user's latest message into exactly one of these intents:
- recipe: the user wants recipe suggestions made up from what they have
- recipe_db: the user wants to search saved/known recipes ("from my cookbook", "a recipe you know")
- pantry_add: the user wants to add ingredients to their pantry
- pantry_remove: the user wants to remove ingredients from their pantry
- pantry_list: the user wants to see what is in their pantry
Respond with ONLY the intent word, nothing else.`

const parseSystemPrompt = `You are a request parser for a cooking assistant. The user is asking for recipes.
Extract the constraints from the message into a JSON object matching this schema, no markdown fences, no commentary:
%s
Rules:
- Omit fields the user did not mention; never invent values.
- "extra_ingredients" are ingredients the user says they have on hand right now, beyond their stored pantry.
- "required_ingredients" are ingredients the user insists the recipe must contain.
- Set "needs_clarification" to true ONLY if the request is too ambiguous to act on at all
  (for example a serving count like "for a few-ish people" that you cannot resolve), and put
  a short question for the user in "clarification_question".`

const pantryAddSystemPrompt = `You extract ingredients from a message where the user adds items to their pantry.
Respond with ONLY a JSON array, no markdown fences, no commentary. Each element:
{"name": string, "quantity": string (optional, e.g. "500g", "2"), "category": string (optional, one of: protein, vegetable, grain, condiment, dairy, other)}
Only include ingredients the user actually wants to add.`

const pantryRemoveSystemPrompt = `You extract ingredient names from a message where the user removes items from their pantry.
Respond with ONLY a JSON array of strings, no markdown fences, no commentary.
Only include ingredients the user actually wants to remove.`

// Canned user-facing messages. Everything recoverable ends in one of these
// instead of an error.
const (
	msgPantryUnavailable    = "I couldn't read your pantry just now, so I can't act on that. Please try again."
	msgParseFailed          = "I couldn't work out the details of your request. Could you rephrase it?"
	msgDefaultClarification = "Could you tell me a bit more about what you're looking for?"
	msgServiceUnavailable   = "I'm unable to put together recipe suggestions right now. Please try again in a moment."
	msgSearchUnavailable    = "Cookbook search isn't available right now. Ask me to make something up from your pantry instead."
	msgNoCandidates         = "I couldn't find any options for that. Try adding ingredients to your pantry or loosening the request."
	msgExhausted            = "I'm out of fresh ideas for this request. Let's start over - tell me what you're in the mood for."
	msgForceSelection       = "That's as many rounds of ideas as I can do for this request - please pick one of these:"
	msgAddFailed            = "I couldn't tell which ingredients to add. Try something like \"add 500g chicken and rice to my pantry\"."
	msgRemoveFailed         = "I couldn't tell which ingredients to remove. Try something like \"remove the chicken from my pantry\"."
	msgPantryEmpty          = "Your pantry is empty. Tell me what you have and I'll keep track of it."
)
