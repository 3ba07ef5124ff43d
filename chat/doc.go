// Package chat implements core.ChatService on top of a model.Model.
//
// ModelService renders a system prompt describing the available agent types
// and the session's assets, sends the conversation to the model and parses
// the reply. The model is asked to answer with a single JSON object:
//
//	{
//	  "message": "I'll search your mailbox for emails from alice.",
//	  "agent_jobs": [{
//	    "agentType": "EMAIL_ACCESS",
//	    "name": "Emails from alice",
//	    "input_parameters": {"from": "alice"},
//	    "output_asset_configs": [{"name": "Results", "dataType": "EMAIL_LIST", "fileType": "JSON"}]
//	  }],
//	  "assets": []
//	}
//
// Replies that are not JSON are treated as a plain assistant message without
// side effects.
package chat
