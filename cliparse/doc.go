// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse parses server configuration from CLI flags and
environment variables.

Flags win over the environment; a .env file in the working directory is
loaded (via godotenv) before the environment is consulted. Everything has
a sensible default, so the server starts with no configuration at all.
*/
package cliparse
