// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package session

import "errors"

// ErrNoManager is returned by [FromContext] for requests which were not
// served through [Manager.Handler].
var ErrNoManager = errors.New("session: no session manager in context")
