// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

// QryJobHistory lists the persisted runs of one unit, newest first. The table
// name is substituted; the unit id and limit are query parameters.
const QryJobHistory = `SELECT unit_id, language, topic, level, state, slide_count, audio_count,
  video_path, skipped, delivered, warnings, error, started_at, finished_at, duration_seconds
FROM ` + "`%s`" + `
WHERE unit_id = @unit_id
ORDER BY started_at DESC
LIMIT @limit`
