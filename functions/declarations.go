package functions

import "google.golang.org/genai"

// Tool names exposed to the model
const (
	ToolScheduleMeeting = "scheduleMeeting"
	ToolCaptureLead     = "captureLead"
)

// Declarations returns the function declarations advertised to the model at
// connect time, for both the live session and the text chat.
func Declarations() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        ToolScheduleMeeting,
				Description: "Opens the real-time booking calendar on the user's screen. Use this when the user wants to book a call. You can also use this to re-open the calendar if the user asks (no parameters needed for re-opening).",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":  {Type: genai.TypeString, Description: "User's full name (optional)"},
						"email": {Type: genai.TypeString, Description: "User's email address (optional)"},
						"date":  {Type: genai.TypeString, Description: "Preferred date in YYYY-MM-DD format (optional)"},
					},
				},
			},
			{
				Name:        ToolCaptureLead,
				Description: "Captures user contact information and inquiry details to send to the Sentient Partners team via email. Use this as a fallback if booking fails.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":    {Type: genai.TypeString, Description: "User's full name"},
						"email":   {Type: genai.TypeString, Description: "User's email address"},
						"phone":   {Type: genai.TypeString, Description: "User's phone number (optional)"},
						"inquiry": {Type: genai.TypeString, Description: "Summary of user's needs or questions"},
					},
					Required: []string{"name", "email"},
				},
			},
		},
	}
}
