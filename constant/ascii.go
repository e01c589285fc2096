package constant

// AsciiArtLogo is the application's banner shown in the root help text.
const AsciiArtLogo = `
  _                  _
 | |_ __ _ _ __   __| | ___ _ __ ___
 | __/ _' | '_ \ / _' |/ _ \ '_ ' _ \
 | || (_| | | | | (_| |  __/ | | | | |
  \__\__,_|_| |_|\__,_|\___|_| |_| |_|
`
