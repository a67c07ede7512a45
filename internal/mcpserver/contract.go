package mcpserver

// NotesFormatContract describes the plain-text notes file that quicknote
// reads. LLM consumers should follow it when appending entries.
const NotesFormatContract = `# quicknote Notes File Format

A notes file is a UTF-8 text file holding timestamped entries in the order
they were written.

## Structure

` + "```" + `text
[2024-02-13 09:15]
Standup moved to 10.
------------------
[2024-02-13 18:05]
Call Bob about the invoice.
` + "```" + `

## Rules

1. **A line that is only a timestamp starts a new note.** Square brackets
   around it are optional. Recognised forms:
   ` + "`" + `2024-02-13 18:05` + "`" + `, ` + "`" + `2024-02-13 18:05:00` + "`" + `,
   ` + "`" + `2024-02-13T18:05` + "`" + `, RFC 3339, ` + "`" + `2024/02/13 18:05` + "`" + `
   and a bare date ` + "`" + `2024-02-13` + "`" + `.
2. **Every following line belongs to that note** until the next timestamp line.
3. **Separator lines** of exactly eighteen dashes (` + "`" + `------------------` + "`" + `)
   are ignored. Shorter rules such as ` + "`" + `---` + "`" + ` stay in the note.
4. **Blank lines** at the start and end of a note are dropped; blank lines
   inside a note are kept.
5. **Text before the first timestamp** is not part of any note.
6. A line that looks like a timestamp but is not a valid date
   (e.g. ` + "`" + `2024-13-45 10:00` + "`" + `) is ordinary content.

## Appending a note

Add a separator, a timestamp line for the current local time, then the body:

` + "```" + `text
------------------
[2024-02-14 08:00]
Buy flowers.
` + "```" + `

Search matches note text and the rendered timestamp, e.g.
` + "`" + `Tuesday, February 13, 6:05PM` + "`" + ` or ` + "`" + `2024-02-13 18:05` + "`" + `.
`
