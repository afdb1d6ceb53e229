package vision

// QualityPrompt asks for a suitability verdict on an IHC image before any
// counting is attempted.
const QualityPrompt = `You are a histology lab assistant reviewing an immunohistochemistry (IHC) microscopy image before cell counting.

Return JSON only:
{
  "is_suitable": true,
  "feedback": "one or two short sentences for the person at the microscope",
  "issues": ["tag1", "tag2"]
}

HARD RULES
- "is_suitable" is true only if stained nuclei are individually distinguishable and in focus.
- "issues" is an ordered list of short lowercase tags (e.g. "blurry", "overstained", "low-contrast", "debris", "too-dark"); empty list if none.
- Transparent regions of the image are outside the user's selection; judge only the visible tissue.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// CountPrompt asks for one counting pass over the visible tissue.
const CountPrompt = `You are counting stained cell nuclei in an immunohistochemistry (IHC) microscopy image.

Positive nuclei are stained brown (DAB). Negative nuclei are stained blue/purple (hematoxylin counterstain).

Return JSON only:
{
  "positive_count": 0,
  "negative_count": 0,
  "total_count": 0
}

HARD RULES
- All three fields are non-negative integers and total_count = positive_count + negative_count.
- Count every distinguishable nucleus exactly once; ignore transparent regions outside the user's selection.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// editPromptPrefix wraps the user's free-text instruction for the edit
// capability. The edited image must come back as an image payload, not a
// description.
const editPromptPrefix = `Edit the attached microscopy image as instructed and return the edited image. Do not describe the edit; return the image itself.

Instruction: `
