package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS logs (
				id BIGSERIAL PRIMARY KEY,
				run_id TEXT,
				ts TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				level TEXT NOT NULL,
				node TEXT,
				event TEXT,
				data JSONB
			);

			CREATE INDEX IF NOT EXISTS idx_logs_run_id ON logs(run_id);
			CREATE INDEX IF NOT EXISTS idx_logs_ts ON logs(ts DESC);

			CREATE TABLE IF NOT EXISTS runs (
				run_id TEXT PRIMARY KEY,
				user_input TEXT,
				status TEXT NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				finished_at TIMESTAMP WITH TIME ZONE
			);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS memory_messages (
				id BIGSERIAL PRIMARY KEY,
				user_id TEXT NOT NULL,
				run_id TEXT,
				ts TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
				content TEXT NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_memory_messages_user_ts ON memory_messages(user_id, ts DESC);
		`,
	}
}
