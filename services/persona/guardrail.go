// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import "regexp"

// =============================================================================
// Guardrail
// =============================================================================

// blockPattern matches the sensitive topics the persona refuses to engage:
// religion, mortality, and philosophy-of-life questions.
var blockPattern = regexp.MustCompile(`(?i)(free\s*-?\s*will|religion(s|al)?|faith|\bgod(s)?\b|deity|meaning\s+of\s+life|purpose\s+of\s+life|afterlife|heaven|hell|death|dying|mortality|philosoph(y|ical|er))`)

// GuardrailResponse is the fixed deflection for blocked topics. It is
// pre-written to satisfy style policy, so it bypasses the sanitizer.
const GuardrailResponse = "I am not a rabbi, priest or philosopher and I’m also in a hurry so questions like this are not a good use of my time or yours."

// GuardrailPatterns lists the active block patterns for the /meta endpoint.
var GuardrailPatterns = []string{
	`\bfree[\s\-]?will\b`,
	`\breligion(s|al)?\b`,
	`\bfaith\b`,
	`\bgod\b|\bgods\b|\bdeity\b`,
	`\bmeaning\s+of\s+life\b`,
	`\bpurpose\s+of\s+life\b`,
	`\bafterlife\b|\bheaven\b|\bhell\b`,
	`\bdeath\b|\bdying\b|\bmortality\b`,
	`\bphilosoph(y|ical|er)\b`,
}

// Blocked reports whether the query hits a guardrail topic.
//
// Description:
//
//	Pure function over the fixed pattern set; no side effects. A hit
//	short-circuits the whole cascade with GuardrailResponse.
func Blocked(query string) bool {
	return blockPattern.MatchString(query)
}
