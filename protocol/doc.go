// Package protocol defines the surface protocol messages and turns decoded
// JSON values into typed messages.
//
// A wire message is a JSON object with exactly one discriminator key:
//
//	{"beginRendering":  {"surfaceId": "s1", "root": "r"}}
//	{"updateComponents": {"surfaceId": "s1", "components": [{"id": "r", "component": {"type": "Text", "content": "hi"}}]}}
//	{"updateDataModel": {"path": "user.name", "value": "Ada"}}
//	{"deleteSurface":   {"surfaceId": "s1"}}
//
// surfaceUpdate and dataModelUpdate are accepted as aliases for
// updateComponents and updateDataModel, and contents for value.
//
// ParseMessage never mutates its input. Component field bags and data model
// values are deep-copied so the caller may reuse the decoded value.
//
// Failures are reported as *MessageParseError carrying a ReasonCode, the
// offending field and the raw value. Every such error matches
// errors.ErrMessageParse.
package protocol
