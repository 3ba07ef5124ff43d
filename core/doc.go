// Package core provides the foundational domain types and collaborator
// contracts used by assetflow. It defines:
//
//   - Assets (named, content-bearing artifacts with status and persistence state)
//   - Agents (declared units of work bound to input and output assets)
//   - Messages (the append-only conversation log)
//   - State (the session container snapshot shared by readers and executors)
//   - Executor (the capability contract implemented by every agent type)
//   - Collaborators (chat, asset repository, messaging, notifications, agent factory)
//
// Implementation concerns (the mutation machinery, orchestration, concrete
// executors and repositories) live in their own packages so that backends can
// be swapped without touching calling code.
package core
