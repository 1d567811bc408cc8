// Package graph provides a client for the Microsoft Graph API scoped to the
// signed-in mailbox (/me).
//
// This package offers the mailbox operations the MCP tools need:
//   - Mail: list, search, read, send, move
//   - Mail folders: list, resolve folder paths like "Inbox/Receipts/2024"
//   - Calendar: list, create, delete events
//   - Inbox rules: list, create
//   - Profile and mailbox settings: read
//
// Every request obtains a bearer token from the auth Manager before it is
// sent, so token refresh and failure classification stay in one place. List
// responses arrive in the OData envelope ("value" plus "@odata.nextLink");
// folder listings follow the next link, message listings return a single
// capped page.
//
// Folder path resolution walks childFolders one segment at a time and keeps a
// path→ID cache; well-known names (Inbox, Sent Items, Deleted Items, ...) map
// straight to Graph's well-known folder names without a request.
//
// Example usage:
//
//	manager := auth.NewManager(auth.NewConfigFromEnv())
//	client := graph.NewClient(manager)
//
//	msgs, err := client.ListMessages(ctx, "Inbox", 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = client.SendMail(ctx, &graph.OutgoingMessage{
//	    Subject:      "Hello",
//	    Body:         graph.ItemBody{ContentType: "text", Content: "Hi there"},
//	    ToRecipients: graph.NewRecipients([]string{"recipient@example.com"}),
//	})
package graph
