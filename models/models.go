package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User from user.go
// - Interview, TranscriptTurn, InterviewAnalysis from interview.go
// - Transcript helpers from transcript.go
// - Strategy and its structured sections from strategy.go
// - Post, Platform, PostStatus from post.go

// Database schema overview:
// 1. users - Owners of interviews, strategies and posts
// 2. interviews - One brand discovery interview per row
// 3. transcript_turns - Ordered, append-only turns of an interview
// 4. strategies - At most one per interview, structured sections stored as jsonb
// 5. posts - Generated social posts and their publishing lifecycle
