/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package testutil

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	"github.com/sirupsen/logrus"
)

// JS renders x as JSON.  When x can't be marshaled, JS logs a warning
// and falls back to Go syntax.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		logrus.WithError(err).Warnf("testutil.JS can't marshal %T", x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Vars parses a JSON object into a variable environment or fails the
// test.  Numbers become float64, as they would coming off the wire.
func Vars(t testing.TB, js string) core.Variables {
	t.Helper()
	var vs core.Variables
	if err := json.Unmarshal([]byte(js), &vs); err != nil {
		t.Fatalf("bad variables %s: %v", js, err)
	}
	return vs
}
