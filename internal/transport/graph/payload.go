package graph

import "github.com/ignite/graphmail/internal/domain"

// sendMailRequest is the body of POST /users/{id}/sendMail.
type sendMailRequest struct {
	Message         message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

type message struct {
	Subject      string      `json:"subject"`
	Body         itemBody    `json:"body"`
	From         *recipient  `json:"from,omitempty"`
	ToRecipients []recipient `json:"toRecipients"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// errorResponse is the error envelope returned by Graph.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func buildSendMailRequest(msg domain.OutboundMessage, saveToSentItems bool) sendMailRequest {
	body := itemBody{ContentType: "Text", Content: msg.Body}
	if msg.IsHTML {
		body.ContentType = "HTML"
	}
	return sendMailRequest{
		Message: message{
			Subject: msg.Subject,
			Body:    body,
			From: &recipient{EmailAddress: emailAddress{
				Address: msg.From.Email,
				Name:    msg.From.Name,
			}},
			ToRecipients: []recipient{{EmailAddress: emailAddress{Address: msg.To}}},
		},
		SaveToSentItems: saveToSentItems,
	}
}
