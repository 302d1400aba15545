package cleaner

import "strings"

// contentPlaceholder marks where the email body goes in Prompt.
const contentPlaceholder = "{email_content}"

// Prompt is the instruction sent with every email.
const Prompt = `
        You are an expert email signature cleaner.

        TASK:
        - Remove all email signatures and content related to them and leave only original message content.
        - Preserve all email content text, images, linkes in original form.
        
        RULES:
        - Email signatures can appear multiple times and not only at the end.
        - A signature is any block that includes combinations of:
            - Person's name, job title, contact info (phone, email, address)
            - Company name, legal disclaimer, or social media links
            - Closings like "Best regards", "Sincerely", "Cheers", etc.
            - Logos or image tags
        - Remove all such blocks wherever they appear in the email.
        - Do NOT remove any actual message content, even if it's after a signature.
        - Do NOT summarize the email content.

        EXAMPLES:
            INPUT EMAIL:
                Hello John,
                I hope this message finds you well. Please find attached the report we discussed.
                (http://example.com/report.pdf)
                Best regards,
                Jane Doe
            CORRECT OUTPUT:
                Hello John,
                I hope this message finds you well. Please find attached the report we discussed.
                (http://example.com/report.pdf)
            WRONG OUTPUT 1 (did not remove signature):
                Hello John,
                I hope this message finds you well. Please find attached the report we discussed.
                Best regards,
                Jane Doe
            WRONG OUTPUT 2 (created summary):
                Jane Doe sent an email to John with a report attached. The email starts with a greeting and ends with a closing.

        INPUT EMAIL:
        {email_content}
        `

// BuildPrompt substitutes content into Prompt. A positive maxContentSize
// caps the number of content bytes included.
func BuildPrompt(content string, maxContentSize int) string {
	return strings.Replace(Prompt, contentPlaceholder, truncateContent(content, maxContentSize), 1)
}

// truncateContent cuts content to at most maxLen bytes without splitting a
// UTF-8 sequence. maxLen of 0 means no limit.
func truncateContent(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !isRuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
