package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// EmailAddress is a Graph emailAddress object.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// Recipient wraps an EmailAddress the way Graph message fields expect.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// NewRecipients builds a recipient list from plain addresses.
func NewRecipients(addresses []string) []Recipient {
	recipients := make([]Recipient, 0, len(addresses))
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		recipients = append(recipients, Recipient{EmailAddress: EmailAddress{Address: addr}})
	}
	return recipients
}

// ItemBody is a Graph itemBody: contentType is "text" or "html".
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Message is the subset of a Graph message this server reads and writes.
type Message struct {
	ID               string      `json:"id,omitempty"`
	Subject          string      `json:"subject,omitempty"`
	BodyPreview      string      `json:"bodyPreview,omitempty"`
	Body             *ItemBody   `json:"body,omitempty"`
	From             *Recipient  `json:"from,omitempty"`
	ToRecipients     []Recipient `json:"toRecipients,omitempty"`
	CcRecipients     []Recipient `json:"ccRecipients,omitempty"`
	ReceivedDateTime string      `json:"receivedDateTime,omitempty"`
	IsRead           bool        `json:"isRead,omitempty"`
	HasAttachments   bool        `json:"hasAttachments,omitempty"`
	ParentFolderID   string      `json:"parentFolderId,omitempty"`
	WebLink          string      `json:"webLink,omitempty"`
}

// Sender returns the from address, or "" when the message has none (drafts).
func (m *Message) Sender() string {
	if m.From == nil {
		return ""
	}
	return m.From.EmailAddress.Address
}

// OutgoingMessage is the payload for the sendMail action.
type OutgoingMessage struct {
	Subject      string      `json:"subject"`
	Body         ItemBody    `json:"body"`
	ToRecipients []Recipient `json:"toRecipients"`
	CcRecipients []Recipient `json:"ccRecipients,omitempty"`
}

// Folder is a Graph mailFolder.
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId,omitempty"`
	ChildFolderCount int    `json:"childFolderCount"`
	TotalItemCount   int    `json:"totalItemCount"`
	UnreadItemCount  int    `json:"unreadItemCount"`
}

// DateTimeTimeZone is a Graph dateTimeTimeZone pair.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Location is a Graph location; only the display name is used here.
type Location struct {
	DisplayName string `json:"displayName,omitempty"`
}

// Attendee is a Graph attendee. Type is "required" or "optional".
type Attendee struct {
	EmailAddress EmailAddress `json:"emailAddress"`
	Type         string       `json:"type,omitempty"`
}

// Event is the subset of a Graph event this server reads and writes.
type Event struct {
	ID          string            `json:"id,omitempty"`
	Subject     string            `json:"subject,omitempty"`
	BodyPreview string            `json:"bodyPreview,omitempty"`
	Body        *ItemBody         `json:"body,omitempty"`
	Start       *DateTimeTimeZone `json:"start,omitempty"`
	End         *DateTimeTimeZone `json:"end,omitempty"`
	Location    *Location         `json:"location,omitempty"`
	Organizer   *Recipient        `json:"organizer,omitempty"`
	Attendees   []Attendee        `json:"attendees,omitempty"`
	IsAllDay    bool              `json:"isAllDay,omitempty"`
	IsCancelled bool              `json:"isCancelled,omitempty"`
	WebLink     string            `json:"webLink,omitempty"`
}

// MessageRuleConditions is the subset of rule predicates this server exposes.
type MessageRuleConditions struct {
	SenderContains  []string    `json:"senderContains,omitempty"`
	SubjectContains []string    `json:"subjectContains,omitempty"`
	FromAddresses   []Recipient `json:"fromAddresses,omitempty"`
}

// MessageRuleActions is the subset of rule actions this server exposes.
type MessageRuleActions struct {
	MoveToFolder string      `json:"moveToFolder,omitempty"`
	Delete       bool        `json:"delete,omitempty"`
	MarkAsRead   bool        `json:"markAsRead,omitempty"`
	ForwardTo    []Recipient `json:"forwardTo,omitempty"`
}

// MessageRule is a Graph inbox messageRule.
type MessageRule struct {
	ID          string                 `json:"id,omitempty"`
	DisplayName string                 `json:"displayName"`
	Sequence    int                    `json:"sequence,omitempty"`
	IsEnabled   bool                   `json:"isEnabled"`
	Conditions  *MessageRuleConditions `json:"conditions,omitempty"`
	Actions     *MessageRuleActions    `json:"actions,omitempty"`
}

// Profile is the subset of a Graph user this server reads.
type Profile struct {
	ID                string `json:"id,omitempty"`
	DisplayName       string `json:"displayName,omitempty"`
	Mail              string `json:"mail,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty"`
	OfficeLocation    string `json:"officeLocation,omitempty"`
	PreferredLanguage string `json:"preferredLanguage,omitempty"`
}

// Address returns the mailbox address, preferring the mail attribute over
// the principal name (they differ on aliased mailboxes).
func (p *Profile) Address() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// AutomaticReplies is a Graph automaticRepliesSetting. Status is "disabled",
// "alwaysEnabled", or "scheduled".
type AutomaticReplies struct {
	Status               string `json:"status,omitempty"`
	ExternalAudience     string `json:"externalAudience,omitempty"`
	InternalReplyMessage string `json:"internalReplyMessage,omitempty"`
	ExternalReplyMessage string `json:"externalReplyMessage,omitempty"`
}

// MailboxSettings is the subset of Graph mailboxSettings this server reads.
type MailboxSettings struct {
	TimeZone         string            `json:"timeZone,omitempty"`
	DateFormat       string            `json:"dateFormat,omitempty"`
	TimeFormat       string            `json:"timeFormat,omitempty"`
	AutomaticReplies *AutomaticReplies `json:"automaticRepliesSetting,omitempty"`
}

// OData list envelopes. Every Graph collection response wraps its items in
// "value" and points at the next page via "@odata.nextLink".
type messageListResponse struct {
	Value    []Message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

type folderListResponse struct {
	Value    []Folder `json:"value"`
	NextLink string   `json:"@odata.nextLink"`
}

type eventListResponse struct {
	Value    []Event `json:"value"`
	NextLink string  `json:"@odata.nextLink"`
}

type ruleListResponse struct {
	Value    []MessageRule `json:"value"`
	NextLink string        `json:"@odata.nextLink"`
}

// graphErrorResponse is the error envelope Graph returns on non-2xx statuses.
type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GraphError is a non-2xx response from the Graph API.
type GraphError struct {
	Status  int    // HTTP status code
	Code    string // Graph error code, e.g. "ErrorItemNotFound"
	Message string
}

func (e *GraphError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("graph: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a Graph 404.
func IsNotFound(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Status == http.StatusNotFound
}
